package services

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"portcontracts/models"
	"portcontracts/utils"
)

// AcceptanceDetails подпись обязательства по приемке работ в предупреждениях
const AcceptanceDetails = "Nghiệm thu"

// warningNamespace пространство имен UUIDv5 для идентификаторов предупреждений
var warningNamespace = uuid.MustParse("6f1c1d1e-3a52-4b8e-9a57-0c2d8e4b7a11")

// WarningID детерминированный идентификатор предупреждения по ключу разбора и позиции
// обязательства в договоре: 0 для приемки, номер этапа оплаты начиная с 1.
// Этапы с одинаковой подписью получают разные идентификаторы, но общий ключ разбора.
func WarningID(key models.TriageKey, position int) uuid.UUID {
	name := key.ContractID.String() + "|" + string(key.Type) + "|" + key.Details + "|" + strconv.Itoa(position)
	return uuid.NewSHA1(warningNamespace, []byte(name))
}

// ScanWarnings ищет приближающиеся и просроченные обязательства по договорам относительно referenceDate.
// Приемка проверяется, пока договор не завершен и задана ожидаемая дата; этап оплаты, пока он
// не получен и задан срок. Предупреждение выдается при просрочке или если до срока не больше
// horizonDays дней. Входные данные не изменяются, повторный вызов дает те же предупреждения.
func ScanWarnings(contracts []models.Contract, referenceDate time.Time, horizonDays int, catalog *StatusCatalog) ([]models.Warning, error) {
	if horizonDays < 0 {
		return nil, invalidArgument("отрицательный горизонт предупреждений: %d", horizonDays)
	}
	today := utils.TruncateToDate(referenceDate)

	warnings := make([]models.Warning, 0)
	for i := range contracts {
		warnings = append(warnings, scanContract(&contracts[i], today, horizonDays, catalog)...)
	}
	return warnings, nil
}

// ScanWarningsParallel сканирует независимые пачки договоров параллельно.
// Результаты объединяются в порядке пачек.
func ScanWarningsParallel(ctx context.Context, batches [][]models.Contract, referenceDate time.Time, horizonDays int, catalog *StatusCatalog) ([]models.Warning, error) {
	if horizonDays < 0 {
		return nil, invalidArgument("отрицательный горизонт предупреждений: %d", horizonDays)
	}

	results := make([][]models.Warning, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found, err := ScanWarnings(batch, referenceDate, horizonDays, catalog)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	warnings := make([]models.Warning, 0)
	for _, found := range results {
		warnings = append(warnings, found...)
	}
	return warnings, nil
}

func scanContract(c *models.Contract, today time.Time, horizonDays int, catalog *StatusCatalog) []models.Warning {
	var out []models.Warning

	if c.ExpectedAcceptanceDate != nil && !catalog.IsCompleted(c.StatusCode) {
		due := utils.TruncateToDate(*c.ExpectedAcceptanceDate)
		if days, ok := classify(today, due, horizonDays); ok {
			warningType := models.WarningAcceptanceUpcoming
			if days < 0 {
				warningType = models.WarningAcceptanceOverdue
			}
			out = append(out, newWarning(c, warningType, due, days, decimal.Zero, acceptancePic(c.Members), AcceptanceDetails, 0))
		}
	}

	terms := make([]models.PaymentTerm, len(c.PaymentTerms))
	copy(terms, c.PaymentTerms)
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].SortOrder < terms[j].SortOrder })

	for i, term := range terms {
		if term.IsCollected || term.DueDate == nil {
			continue
		}
		due := utils.TruncateToDate(*term.DueDate)
		days, ok := classify(today, due, horizonDays)
		if !ok {
			continue
		}
		warningType := models.WarningPaymentUpcoming
		if days < 0 {
			warningType = models.WarningPaymentOverdue
		}
		details := strings.TrimSpace(term.BatchLabel)
		if details == "" {
			details = defaultBatchLabel(i + 1)
		}
		out = append(out, newWarning(c, warningType, due, days, term.AmountValue, paymentPic(c.Members), details, i+1))
	}

	return out
}

// classify возвращает разницу в днях и признак того, что по сроку нужно предупреждение
func classify(today, due time.Time, horizonDays int) (int, bool) {
	days := utils.DaysBetween(today, due)
	if days < 0 {
		return days, true
	}
	return days, days <= horizonDays
}

func newWarning(c *models.Contract, warningType models.WarningType, due time.Time, days int, amount decimal.Decimal, pic, details string, position int) models.Warning {
	w := models.Warning{
		ContractID:   c.ID,
		ContractCode: c.Code,
		CustomerName: c.CustomerName(),
		Type:         warningType,
		DueDate:      due,
		DaysDiff:     days,
		Amount:       amount,
		Pic:          pic,
		Status:       models.WarningPending,
		Details:      details,
	}
	w.ID = WarningID(w.TriageKey(), position)
	return w
}

// acceptancePic ответственный за приемку: руководитель проекта, иначе аккаунт-менеджер
func acceptancePic(members []models.ProjectMember) string {
	return firstMemberName(members, models.RolePM, models.RoleAM)
}

// paymentPic ответственный за оплату: аккаунт-менеджер, иначе руководитель проекта
func paymentPic(members []models.ProjectMember) string {
	return firstMemberName(members, models.RoleAM, models.RolePM)
}

func firstMemberName(members []models.ProjectMember, roles ...models.MemberRole) string {
	for _, role := range roles {
		for _, m := range members {
			if m.Role == role && strings.TrimSpace(m.Name) != "" {
				return m.Name
			}
		}
	}
	return ""
}

// SortWarnings упорядочивает предупреждения: сначала самые просроченные
func SortWarnings(warnings []models.Warning) {
	sort.SliceStable(warnings, func(i, j int) bool {
		a, b := warnings[i], warnings[j]
		if a.DaysDiff != b.DaysDiff {
			return a.DaysDiff < b.DaysDiff
		}
		if a.ContractCode != b.ContractCode {
			return a.ContractCode < b.ContractCode
		}
		return a.Details < b.Details
	})
}
