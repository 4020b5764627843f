package extract

import (
	"regexp"
	"strings"

	"github.com/kopeckbot/kopeck/internal/model"
	"github.com/kopeckbot/kopeck/internal/rules"
)

// amountPattern matches the first numeric token, allowing thousands
// separators ("40 000") and a decimal comma or point.
var amountPattern = regexp.MustCompile(`\d+(?:[ \x{00a0}]\d{3})*(?:[.,]\d+)?`)

// incomeTriggers mark a message as income regardless of category.
var incomeTriggers = []string{
	"пополнил",
	"снял",
	"взял наличку",
	"получил",
}

// trigger maps a keyword set onto a category. Order matters: earlier
// entries take priority ("поставщику" beats a salary name, the city
// markets beat everything).
type trigger struct {
	category string
	words    []string
}

var categoryTriggers = []trigger{
	{category: "Закупка Тула", words: []string{"рынок тула", "тула рынок"}},
	{category: "Закупка Москва", words: []string{"рынок москва", "москва рынок"}},
	{category: "Оплата поставщику", words: []string{"поставщик"}},
	{category: "Выплаты учредителям", words: []string{"лично"}},
	{category: "Зарплаты сотрудникам", words: []string{"зарплат"}},
	{category: "Такси", words: []string{"такси", "убер", "яндекс"}},
	{category: "Транспорт", words: []string{"транспорт", "бензин", "авто"}},
	{category: "Связь", words: []string{"связь", "интернет", "телефон"}},
	{category: "Благотворительность", words: []string{"благотворительность", "донат", "помощь", "сво"}},
	{category: "Процент", words: []string{"процент"}},
	{category: "Общественные расходы", words: []string{"хоз", "офис", "канцеляр"}},
	{category: "Материалы", words: []string{"материал", "закупка", "товар"}},
}

// Fallback is the deterministic extraction path: fixed trigger-word
// matching plus a numeric-token scan. It yields at most one candidate
// and never errs.
func Fallback(text string) []model.Candidate {
	lower := strings.ToLower(text)

	amount := amountPattern.FindString(lower)
	if amount == "" {
		return nil
	}

	typ := model.OperationExpense
	for _, w := range incomeTriggers {
		if strings.Contains(lower, w) {
			typ = model.OperationIncome
			break
		}
	}

	category := ""
	if typ == model.OperationIncome {
		category = rules.IncomeCategory
	} else {
		matched := false
		for _, tr := range categoryTriggers {
			for _, w := range tr.words {
				if strings.Contains(lower, w) {
					category = tr.category
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if !matched {
			category = rules.FallbackCategory
		}
	}

	return []model.Candidate{{
		Type:        string(typ),
		Category:    category,
		Description: describeFallback(text, amount),
		Amount:      amount,
	}}
}

// describeFallback keeps the utterance minus the amount token as the
// description, so an approximate entry still says what it was for.
func describeFallback(text, amount string) string {
	idx := strings.Index(strings.ToLower(text), amount)
	if idx >= 0 {
		text = text[:idx] + text[idx+len(amount):]
	}
	return strings.Join(strings.Fields(text), " ")
}
