package extract

import "regexp"

// subtitlePattern связывает шаблон с меткой в исходной письменности и кодом
type subtitlePattern struct {
	re    *regexp.Regexp
	label string
	code  string
}

// subtitlePatterns упорядочены по приоритету: двуязычные метки, затем одноязычные,
// затем одиночная японская. Первое совпадение побеждает.
var subtitlePatterns = []subtitlePattern{
	{re: regexp.MustCompile(`简日`), label: "简日", code: "CHS_JP"},
	{re: regexp.MustCompile(`繁日`), label: "繁日", code: "CHT_JP"},
	{re: regexp.MustCompile(`简繁`), label: "简繁", code: "CHS_CHT"},
	{re: regexp.MustCompile(`(?i)CHS[_&]JP`), label: "CHS_JP", code: "CHS_JP"},
	{re: regexp.MustCompile(`(?i)CHT[_&]JP`), label: "CHT_JP", code: "CHT_JP"},

	{re: regexp.MustCompile(`简`), label: "简", code: "CHS"},
	{re: regexp.MustCompile(`(?i)CHS`), label: "CHS", code: "CHS"},
	{re: regexp.MustCompile(`繁`), label: "繁", code: "CHT"},
	{re: regexp.MustCompile(`(?i)CHT`), label: "CHT", code: "CHT"},
	{re: regexp.MustCompile(`(?i)BIG5`), label: "BIG5", code: "CHT"},

	{re: regexp.MustCompile(`(?i)JAPANESE|JP`), label: "JP", code: "JP"},
	{re: regexp.MustCompile(`日`), label: "日", code: "JP"},
}
