package checklist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Normalize rewrites the merged checklist in place: dates to DD/MM/YYYY,
// monetary strings prefixed with R$, booleans coerced where the schema field
// is boolean, document lists deduplicated and the payment mechanism stripped
// of trailing JSON fragments. Normalize(Normalize(x)) == Normalize(x).
func Normalize(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	normalizeTree(data)

	if participacao, ok := data["participacao"].(map[string]any); ok {
		participacao["permiteConsorcio"] = CoerceBool(participacao["permiteConsorcio"])
		participacao["beneficiosMPE"] = CoerceBool(participacao["beneficiosMPE"])
	}
	if _, ok := data["visitaTecnica"]; ok {
		data["visitaTecnica"] = CoerceBool(data["visitaTecnica"])
	}
	if requisitos, ok := data["requisitos"].([]any); ok {
		for _, raw := range requisitos {
			if item, ok := raw.(map[string]any); ok {
				item["solicitado"] = CoerceBool(item["solicitado"])
			}
		}
	}
	if documentos, ok := data["documentos"].([]any); ok {
		for _, raw := range documentos {
			grupo, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			itens, ok := grupo["itens"].([]any)
			if !ok {
				continue
			}
			for _, rawItem := range itens {
				if item, ok := rawItem.(map[string]any); ok {
					item["solicitado"] = CoerceBool(item["solicitado"])
				}
			}
			grupo["itens"] = dedupeItens(itens)
		}
	}
	if outros, ok := data["outrosEdital"].(map[string]any); ok {
		if mecanismo, ok := outros["mecanismoPagamento"].(string); ok {
			outros["mecanismoPagamento"] = SanitizePaymentMechanism(mecanismo)
		}
	}
	if pontuacao, ok := data["pontuacao"]; ok {
		data["pontuacao"] = coerceInt(pontuacao)
	}
	return data
}

// normalizeTree applies the string rewrites (dates, money) to every string in
// the tree except the evidence side-channel, which quotes source text as-is.
func normalizeTree(node any) {
	switch value := node.(type) {
	case map[string]any:
		for k, v := range value {
			if k == "evidence" {
				continue
			}
			if s, ok := v.(string); ok {
				value[k] = normalizeString(s)
				continue
			}
			normalizeTree(v)
		}
	case []any:
		for i, v := range value {
			if s, ok := v.(string); ok {
				value[i] = normalizeString(s)
				continue
			}
			normalizeTree(v)
		}
	}
}

func normalizeString(s string) string {
	if out, ok := NormalizeDate(s); ok {
		return out
	}
	return NormalizeMoney(s)
}

var (
	dateBR        = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	dateISO       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	dateDashed    = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)
	dateLongForm  = regexp.MustCompile(`(?i)^(\d{1,2})\s+de\s+([a-zçê]+)\s+de\s+(\d{4})$`)
	moneyPattern  = regexp.MustCompile(`^\s*\d{1,3}(\.\d{3})*,\d{2}\s*$`)
	monthsByName  = map[string]int{
		"janeiro": 1, "fevereiro": 2, "março": 3, "marco": 3, "abril": 4,
		"maio": 5, "junho": 6, "julho": 7, "agosto": 8, "setembro": 9,
		"outubro": 10, "novembro": 11, "dezembro": 12,
	}
)

// NormalizeDate rewrites recognised date forms to DD/MM/YYYY. The second
// return reports whether the input was a date (already-normalised dates
// count).
func NormalizeDate(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if dateBR.MatchString(trimmed) {
		return trimmed, true
	}
	if m := dateISO.FindStringSubmatch(trimmed); m != nil {
		return fmt.Sprintf("%s/%s/%s", m[3], m[2], m[1]), true
	}
	if m := dateDashed.FindStringSubmatch(trimmed); m != nil {
		return fmt.Sprintf("%s/%s/%s", m[1], m[2], m[3]), true
	}
	if m := dateLongForm.FindStringSubmatch(trimmed); m != nil {
		month, ok := monthsByName[strings.ToLower(m[2])]
		if !ok {
			return s, false
		}
		day, err := strconv.Atoi(m[1])
		if err != nil {
			return s, false
		}
		return fmt.Sprintf("%02d/%02d/%s", day, month, m[3]), true
	}
	return s, false
}

// NormalizeMoney prefixes a bare Brazilian monetary string with "R$ ". Any
// other value passes through unchanged.
func NormalizeMoney(s string) string {
	if moneyPattern.MatchString(s) {
		return "R$ " + strings.TrimSpace(s)
	}
	return s
}

// CoerceBool maps the usual textual/numeric truth spellings onto a boolean.
// Unrecognised non-empty strings count as true, matching the permissive
// handling of LLM output.
func CoerceBool(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "sim", "yes", "1":
			return true
		case "false", "não", "nao", "no", "0", "":
			return false
		default:
			return true
		}
	case float64:
		return value != 0
	case int:
		return value != 0
	default:
		return false
	}
}

func coerceInt(v any) int {
	switch value := v.(type) {
	case int:
		return value
	case float64:
		return int(value)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return 0
}

// dedupeItens removes duplicate items by (documento, referencia), keeping the
// first occurrence.
func dedupeItens(itens []any) []any {
	seen := map[string]struct{}{}
	out := make([]any, 0, len(itens))
	for _, raw := range itens {
		item, ok := raw.(map[string]any)
		if !ok {
			out = append(out, raw)
			continue
		}
		documento, _ := item["documento"].(string)
		referencia, _ := item["referencia"].(string)
		key := documento + "\x00" + referencia
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

var (
	evidenceFragment = regexp.MustCompile(`[,'"]\s*evidencia["']?\s*[:{]|["']?trecho["']?\s*:`)
	trailingJunk     = regexp.MustCompile("[}`'\",]+\\s*$")
)

const paymentMechanismMaxLen = 600

// SanitizePaymentMechanism strips trailing JSON-evidence fragments that some
// responses append to the payment mechanism text, trims dangling braces and
// quotes, and truncates long values.
func SanitizePaymentMechanism(s string) string {
	out := s
	if loc := evidenceFragment.FindStringIndex(out); loc != nil {
		out = out[:loc[0]]
	}
	out = trailingJunk.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	if runes := []rune(out); len(runes) > paymentMechanismMaxLen {
		out = string(runes[:paymentMechanismMaxLen]) + "…"
	}
	return out
}
