package chunk

import "regexp"

// Section hint tags form a closed set shared with the retrieval blocks.
const (
	HintDocumentos    = "documentos"
	HintPrazos        = "prazos"
	HintSessaoDisputa = "sessao_disputa"
	HintProposta      = "proposta"
	HintPagamento     = "pagamento"
	HintAnalise       = "analise"
	HintEdital        = "edital"
	HintModalidade    = "modalidade"
)

// hintPatterns map heading keywords to tags. Order is the tie-break when two
// headings match at the same position.
var hintPatterns = []struct {
	tag string
	re  *regexp.Regexp
}{
	{HintDocumentos, headingRegexp(`DOCUMENTA[ÇC][ÃA]O|HABILITA[ÇC][ÃA]O`)},
	{HintPrazos, headingRegexp(`PRAZOS?\b|IMPUGNA[ÇC][ÃA]O`)},
	{HintSessaoDisputa, headingRegexp(`SESS[ÃA]O|DISPUTA|LANCES`)},
	{HintProposta, headingRegexp(`PROPOSTA`)},
	{HintPagamento, headingRegexp(`PAGAMENTO`)},
	{HintAnalise, headingRegexp(`AN[ÁA]LISE|PONTUA[ÇC][ÃA]O`)},
	{HintModalidade, headingRegexp(`MODALIDADE|PREG[ÃA]O|CONCORR[ÊE]NCIA`)},
	{HintEdital, headingRegexp(`EDITAL\b|OBJETO\b`)},
}

// headingRegexp anchors the keywords to a line start, allowing a leading
// item number such as "6.2." or "12)".
func headingRegexp(keywords string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^\s*(?:[0-9][0-9.)\s]*)?(?:` + keywords + `)`)
}

// DetectSectionHint scans the chunk for heading patterns and returns the tag
// of the earliest match, or "" when no heading matched. Matches at the same
// position resolve in table order.
func DetectSectionHint(text string) string {
	best := -1
	tag := ""
	for _, p := range hintPatterns {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best = loc[0]
			tag = p.tag
		}
	}
	return tag
}
