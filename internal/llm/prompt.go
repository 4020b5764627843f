package llm

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a financial transaction extractor. You MUST respond with ONLY a valid JSON array. Do not include any explanatory text, markdown formatting, or commentary before or after the JSON. Start your response directly with [ and end with ]. If the message contains no financial operation, respond with []."

// buildStructuringPrompt renders the extraction prompt for a single
// user utterance. The model must return a strict JSON array so that a
// message describing several operations yields several objects, in the
// order they were stated.
func buildStructuringPrompt(text string, categories []string) string {
	var b strings.Builder

	b.WriteString("Extract every financial operation from the user message below.\n\n")
	b.WriteString("Return a JSON array of objects, one per operation, in the order stated. Each object has these fields:\n")
	b.WriteString(`- "operation_type": "income" or "expense"` + "\n")
	b.WriteString(`- "amount": string, the unsigned numeric amount as written (e.g. "40000")` + "\n")
	b.WriteString(`- "category": one of the predefined categories below, or "" if none fits` + "\n")
	b.WriteString(`- "description": short counterparty/purpose, may be ""` + "\n")
	b.WriteString(`- "date": "DD.MM.YYYY" only if the message names an explicit date, else ""` + "\n\n")

	b.WriteString("Predefined categories:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\n")

	b.WriteString("Rules:\n")
	b.WriteString("- \"пополнил\", \"снял\", \"взял наличку\", \"получил\" indicate income; \"заплатил\", \"потратил\", \"дал\", \"купил\", \"оплатил\", \"зарплата\" indicate expense.\n")
	b.WriteString("- \"поставщику\" always maps to \"Оплата поставщику\", even when a name is present.\n")
	b.WriteString("- \"рынок тула\" maps to \"Закупка Тула\"; \"рынок москва\" maps to \"Закупка Москва\".\n")
	b.WriteString("- A name with \"лично\" maps to \"Выплаты учредителям\"; salary plus a name maps to \"Зарплаты сотрудникам\".\n")
	b.WriteString("- Strip verbs from the description; keep names and purpose, capitalized, nominative case (\"Петрову\" -> \"Петров\").\n")
	b.WriteString("- Never guess an amount; skip an operation with no numeric amount.\n\n")

	fmt.Fprintf(&b, "Message: %q\n", text)

	return b.String()
}
