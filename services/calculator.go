package services

import (
	"math"

	"github.com/shopspring/decimal"
)

// MinorUnitScale число знаков после запятой в расчетной валюте (VND без дробной части)
const MinorUnitScale int32 = 0

// RatioScale число знаков после запятой в доле этапа оплаты, как в колонке ratio_percent
const RatioScale int32 = 2

var (
	// DefaultVatRate ставка НДС нового договора, в процентах
	DefaultVatRate = decimal.NewFromInt(10)
	hundred        = decimal.NewFromInt(100)
)

// ComputeVatTotal считает сумму договора с НДС: valuePreVat + valuePreVat*vatRate/100.
// Промежуточный результат не округляется, округление одно, до минимальной единицы валюты.
func ComputeVatTotal(valuePreVat, vatRatePercent decimal.Decimal) (decimal.Decimal, error) {
	if valuePreVat.IsNegative() {
		return decimal.Zero, invalidArgument("отрицательная сумма без НДС: %s", valuePreVat)
	}
	if vatRatePercent.IsNegative() {
		return decimal.Zero, invalidArgument("отрицательная ставка НДС: %s", vatRatePercent)
	}
	vat := valuePreVat.Mul(vatRatePercent).Shift(-2)
	return valuePreVat.Add(vat).Round(MinorUnitScale), nil
}

// ComputeInstallmentAmount считает сумму этапа оплаты по доле от суммы с НДС
func ComputeInstallmentAmount(valuePostVat, ratioPercent decimal.Decimal) (decimal.Decimal, error) {
	if valuePostVat.IsNegative() {
		return decimal.Zero, invalidArgument("отрицательная сумма договора: %s", valuePostVat)
	}
	if ratioPercent.IsNegative() {
		return decimal.Zero, invalidArgument("отрицательная доля этапа: %s", ratioPercent)
	}
	return valuePostVat.Mul(ratioPercent).Shift(-2).Round(MinorUnitScale), nil
}

// DecimalFromFloat переводит число с плавающей точкой в decimal.
// NaN и бесконечность не являются суммой и отклоняются.
func DecimalFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, invalidArgument("нечисловое значение: %v", f)
	}
	return decimal.NewFromFloat(f), nil
}

// ratioInRange проверяет, что доля этапа лежит в пределах 0..100
// RoundRatio округляет долю этапа до точности хранения
func RoundRatio(ratio decimal.Decimal) decimal.Decimal {
	return ratio.Round(RatioScale)
}

func ratioInRange(ratio decimal.Decimal) bool {
	return !ratio.IsNegative() && ratio.LessThanOrEqual(hundred)
}
