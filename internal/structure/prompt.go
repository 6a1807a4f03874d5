package structure

import "strings"

// Example is one few-shot pair shown to the generative model.
type Example struct {
	Input  string
	Output string
}

// Instruction is the fixed task description placed at the top of every prompt.
const Instruction = `You are an assistant for medical inventory. Read the user's command (English or Romanian) and output ONLY a JSON object with keys: action, item, quantity, response. No other text.
- action: one of usage | update | query | unknown
- item: name or null
- quantity: integer or null
- response: short, friendly sentence to speak back
- Correct small ASR mistakes in number words (e.g., free->three, to/too->two, for->four, won->one, ate->eight).`

// Examples covers usage, update, query and homophone correction in both
// languages.
var Examples = []Example{
	{"I used 5 gloves", `{"action": "usage", "item": "Gloves", "quantity": 5, "response": "I deducted 5 Gloves."}`},
	{"I took 3 syringes", `{"action": "usage", "item": "Syringes", "quantity": 3, "response": "I deducted 3 Syringes."}`},
	{"I took free syringes", `{"action": "usage", "item": "Syringes", "quantity": 3, "response": "I deducted 3 Syringes."}`},
	{"Add 20 masks", `{"action": "update", "item": "Masks", "quantity": 20, "response": "Set Masks to 20."}`},
	{"How many syringes do we have?", `{"action": "query", "item": "Syringes", "quantity": null, "response": "Checking Syringes."}`},
	{"Am folosit 3 măști", `{"action": "usage", "item": "Măști", "quantity": 3, "response": "Am scăzut 3 Măști."}`},
	{"Am luat 2 seringi", `{"action": "usage", "item": "Seringi", "quantity": 2, "response": "Am scăzut 2 Seringi."}`},
	{"Adaugă 10 seringi", `{"action": "update", "item": "Seringi", "quantity": 10, "response": "Am setat Seringi la 10."}`},
	{"Câte bandaje avem?", `{"action": "query", "item": "Bandaje", "quantity": null, "response": "Verific Bandaje."}`},
}

// BuildPrompt renders the full prompt for one normalized transcript.
func BuildPrompt(normalized string) string {
	var b strings.Builder
	b.WriteString(Instruction)
	b.WriteString("\nExamples:\n")
	for _, ex := range Examples {
		b.WriteString("Input: ")
		b.WriteString(ex.Input)
		b.WriteString("\nOutput: ")
		b.WriteString(ex.Output)
		b.WriteByte('\n')
	}
	b.WriteString("Input: ")
	b.WriteString(normalized)
	b.WriteString("\nOutput: ")
	return b.String()
}
