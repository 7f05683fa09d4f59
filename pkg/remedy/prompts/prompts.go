// Package prompts renders the instructions sent to the chat model by each
// pipeline stage.
package prompts

import (
	"strings"
	"text/template"

	"github.com/cognicore/herba/pkg/remedy"
)

var structureTmpl = template.Must(template.New("structure").Parse(
	`Turn the herbal remedy entry below into a single JSON object with these fields:
- name
- synonyms (array)
- properties (array)
- uses (array)
- preparationMethods (array)
- cautions (array)
- tags (array)
- conditionsTreated (array)
- evidenceLevel (string: "high", "moderate" or "low")
- sourceReferences (array of URLs or citations)

Entry:
{{.Entry}}

Reply with the JSON object only.
`))

var categorizeTmpl = template.Must(template.New("categorize").Parse(
	`Assign the remedy entry below to exactly one category:
{{- range .Categories}}
- {{.Name}} ({{.Hint}})
{{- end}}

While doing so, tidy the entry: drop empty arrays, keep the formatting consistent and add tags that fit its content.

Entry:
{{.Entry}}

Reply with a JSON object that keeps the entry's structure and adds a "category" field.
`))

var enhanceTmpl = template.Must(template.New("enhance").Parse(
	`Expand the remedy entry below. It is categorized as {{.Category}}.

Every entry must have:
1. At least 3 tags
2. At least 2 uses
3. An evidence level (high, moderate or low)
4. Source references
5. Cross-references to related remedies
{{- if .Extras}}

Because it is {{.Article}} {{.Label}}, also add:
{{- range .Extras}}
- {{.}}
{{- end}}
{{- end}}

Entry:
{{.Entry}}

Reply with one JSON object holding everything. Keep the original fields and add the new ones.
`))

var categoryHints = map[string]string{
	remedy.CategoryHerb:            "plant-based remedies",
	remedy.CategoryMineral:         "mineral-based remedies",
	remedy.CategoryEssentialOil:    "essential oils",
	remedy.CategoryCommonKnowledge: "general herbalism information, groupings or entries that name no single remedy",
}

// categoryExtras lists the extra fields requested per category.
var categoryExtras = map[string][]string{
	remedy.CategoryHerb: {
		"Plant family",
		"Parts used",
		"Growing information",
		"Harvesting information",
		"Active constituents",
		"Dosage information (adult, children, elderly)",
		"Shelf life",
		"Storage instructions",
		"Interactions with medications",
	},
	remedy.CategoryEssentialOil: {
		"Extraction method",
		"Dilution ratios",
		"Carrier oil recommendations",
		"Safety precautions",
		"Shelf life",
		"Storage instructions",
	},
	remedy.CategoryMineral: {
		"Chemical composition",
		"Purity requirements",
		"Sourcing information",
		"Dosage information",
		"Shelf life",
		"Storage instructions",
	},
	remedy.CategoryCommonKnowledge: {
		"Historical context",
		"Cultural significance",
		"Modern applications",
	},
}

// Structure asks for a raw entry to be restructured into a remedy object.
func Structure(entry string) string {
	return render(structureTmpl, map[string]any{"Entry": entry})
}

// Categorize asks for one of remedy.Categories to be assigned to entry.
func Categorize(entry string) string {
	type option struct{ Name, Hint string }
	opts := make([]option, 0, len(remedy.Categories))
	for _, c := range remedy.Categories {
		opts = append(opts, option{Name: c, Hint: categoryHints[c]})
	}
	return render(categorizeTmpl, map[string]any{"Entry": entry, "Categories": opts})
}

// Enhance asks for entry to be expanded with the fields its category calls
// for. Unknown categories get the common requirements only.
func Enhance(category, entry string) string {
	key := remedy.NormalizeCategory(category)
	label := strings.ReplaceAll(key, "_", " ")
	if category == "" {
		category = remedy.CategoryUnknown
	}
	return render(enhanceTmpl, map[string]any{
		"Category": category,
		"Label":    label,
		"Article":  article(label),
		"Extras":   categoryExtras[key],
		"Entry":    entry,
	})
}

// ExtraFields returns the category-specific fields Enhance requests.
func ExtraFields(category string) []string {
	return append([]string(nil), categoryExtras[remedy.NormalizeCategory(category)]...)
}

func article(word string) string {
	if word != "" && strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}

func render(t *template.Template, data any) string {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		panic(err)
	}
	return sb.String()
}
