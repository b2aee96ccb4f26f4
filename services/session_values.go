package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portcontracts/models"
	"portcontracts/utils"
)

// Значения полей приходят либо из JSON (float64, json.Number, string, bool, []interface{}),
// либо из кода (decimal.Decimal, int, []uint). Функции ниже приводят их к типам черновика.

func decimalValue(field string, v interface{}) (decimal.Decimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return val, nil
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero, nil
		}
		return *val, nil
	case json.Number:
		return decimalFromString(field, val.String())
	case string:
		return decimalFromString(field, val)
	case float64:
		d, err := DecimalFromFloat(val)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", field, err)
		}
		return d, nil
	case float32:
		return decimalValue(field, float64(val))
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case int32:
		return decimal.NewFromInt(int64(val)), nil
	case uint:
		return decimal.NewFromInt(int64(val)), nil
	case uint64:
		return decimal.NewFromUint64(val), nil
	default:
		return decimal.Zero, invalidArgument("%s: ожидалось число, получено %T", field, v)
	}
}

func decimalFromString(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	// форма может прислать сумму с разделителями разрядов: "500,000,000"
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Zero, invalidArgument("%s: неверное число %q", field, raw)
	}
	return d, nil
}

func nonNegativeDecimal(field string, v interface{}) (decimal.Decimal, error) {
	d, err := decimalValue(field, v)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, invalidArgument("%s: отрицательное значение %s", field, d)
	}
	return d, nil
}

func stringValue(field string, v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		return "", invalidArgument("%s: ожидалась строка, получено %T", field, v)
	}
}

// dateValue хранит дату строкой: черновик может содержать незаконченный ввод,
// нормализация происходит в PrepareForSave
func dateValue(field string, v interface{}) (string, error) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return "", nil
		}
		return val.Format(utils.DateLayout), nil
	case *time.Time:
		return utils.FormatCalendarDate(val), nil
	default:
		return stringValue(field, v)
	}
}

func boolValue(field string, v interface{}) (bool, error) {
	switch val := v.(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, invalidArgument("%s: неверное логическое значение %q", field, val)
		}
		return b, nil
	default:
		return false, invalidArgument("%s: ожидалось логическое значение, получено %T", field, v)
	}
}

func uintValue(field string, v interface{}) (uint, error) {
	switch val := v.(type) {
	case uint:
		return val, nil
	case int:
		if val < 0 {
			return 0, invalidArgument("%s: отрицательный идентификатор %d", field, val)
		}
		return uint(val), nil
	case int64:
		if val < 0 {
			return 0, invalidArgument("%s: отрицательный идентификатор %d", field, val)
		}
		return uint(val), nil
	case uint64:
		return uint(val), nil
	case float64:
		if val < 0 || val != math.Trunc(val) || math.IsInf(val, 0) {
			return 0, invalidArgument("%s: неверный идентификатор %v", field, val)
		}
		return uint(val), nil
	case json.Number:
		return uintFromString(field, val.String())
	case string:
		return uintFromString(field, val)
	default:
		return 0, invalidArgument("%s: ожидался идентификатор, получено %T", field, v)
	}
}

func uintFromString(field, raw string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, invalidArgument("%s: неверный идентификатор %q", field, raw)
	}
	return uint(n), nil
}

// optionalUintValue пустое значение и ноль означают "не выбрано"
func optionalUintValue(field string, v interface{}) (*uint, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *uint:
		if val == nil || *val == 0 {
			return nil, nil
		}
		id := *val
		return &id, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
	}
	id, err := uintValue(field, v)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}
	return &id, nil
}

func uintSliceValue(field string, v interface{}) ([]uint, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []uint:
		return append([]uint(nil), val...), nil
	case []int:
		out := make([]uint, 0, len(val))
		for _, item := range val {
			id, err := uintValue(field, item)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
		return out, nil
	case []interface{}:
		out := make([]uint, 0, len(val))
		for _, item := range val {
			id, err := uintValue(field, item)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
		return out, nil
	default:
		return nil, invalidArgument("%s: ожидался список идентификаторов, получено %T", field, v)
	}
}

func attachmentsValue(field string, v interface{}) ([]models.Attachment, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []models.Attachment:
		return append([]models.Attachment(nil), val...), nil
	default:
		// вложения непрозрачны: принимаем любую структуру, совместимую с Attachment
		data, err := json.Marshal(v)
		if err != nil {
			return nil, invalidArgument("%s: %v", field, err)
		}
		var out []models.Attachment
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, invalidArgument("%s: ожидался список вложений", field)
		}
		return out, nil
	}
}

// statusCodeValue принимает код строкой или объектом {"code": ...}
func statusCodeValue(field string, v interface{}) (string, error) {
	switch val := v.(type) {
	case models.StatusRef:
		return string(val), nil
	case models.ContractStatus:
		return val.Code, nil
	case map[string]interface{}:
		return stringValue(field, val["code"])
	default:
		return stringValue(field, v)
	}
}
