package blocks

import (
	"encoding/json"
	"sort"
)

// JSON schemas for the strict structured-output constraint, built once at
// package init. Every property is required and additionalProperties is false,
// as the provider's strict mode demands; optionality is expressed with null
// union types.

func evidenceSchema() map[string]any {
	return map[string]any{
		"type": []string{"object", "null"},
		"properties": map[string]any{
			"trecho": map[string]any{"type": "string"},
			"ref":    map[string]any{"type": "string"},
			"page":   map[string]any{"type": []string{"integer", "null"}},
		},
		"required":             []string{"trecho", "ref", "page"},
		"additionalProperties": false,
	}
}

func fieldSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value":    map[string]any{"type": "string"},
			"evidence": evidenceSchema(),
		},
		"required":             []string{"value", "evidence"},
		"additionalProperties": false,
	}
}

func boolFieldSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value":    map[string]any{"type": "boolean"},
			"evidence": evidenceSchema(),
		},
		"required":             []string{"value", "evidence"},
		"additionalProperties": false,
	}
}

func objectSchema(props map[string]any) map[string]any {
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	sort.Strings(required)
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func fieldsObjectSchema(names ...string) map[string]any {
	props := make(map[string]any, len(names))
	for _, name := range names {
		props[name] = fieldSchema()
	}
	return objectSchema(props)
}

func deadlineSchema() map[string]any {
	return fieldsObjectSchema("data", "horario")
}

func requisitoSchema() map[string]any {
	return objectSchema(map[string]any{
		"categoria":  map[string]any{"type": "string"},
		"referencia": map[string]any{"type": "string"},
		"local":      map[string]any{"type": "string"},
		"documento":  map[string]any{"type": "string"},
		"solicitado": map[string]any{"type": "boolean"},
		"status":     map[string]any{"type": "string"},
		"observacao": map[string]any{"type": "string"},
		"evidence":   evidenceSchema(),
	})
}

func editalInfoSchema() map[string]any {
	return fieldsObjectSchema(
		"licitacao", "edital", "orgao", "objeto", "dataSessao", "portal",
		"numeroProcessoInterno", "totalReais", "valorEnergia", "volumeEnergia",
		"vigenciaContrato", "modalidadeConcessionaria", "prazoInicioInjecao",
	)
}

func participacaoSchema() map[string]any {
	return objectSchema(map[string]any{
		"permiteConsorcio": boolFieldSchema(),
		"beneficiosMPE":    boolFieldSchema(),
		"itemEdital":       fieldSchema(),
	})
}

func prazosSchema() map[string]any {
	return objectSchema(map[string]any{
		"enviarPropostaAte":               deadlineSchema(),
		"esclarecimentosAte":              deadlineSchema(),
		"impugnacaoAte":                   deadlineSchema(),
		"contatoEsclarecimentoImpugnacao": fieldSchema(),
	})
}

func requisitosSchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": requisitoSchema(),
	}
}

func sessaoSchema() map[string]any {
	return fieldsObjectSchema("diferencaEntreLances", "horasPropostaAjustada", "abertoFechado")
}

func mustSchema(schema map[string]any) json.RawMessage {
	data, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return data
}

var (
	editalBlockSchema = mustSchema(objectSchema(map[string]any{
		"edital": editalInfoSchema(),
	}))

	modalidadeBlockSchema = mustSchema(objectSchema(map[string]any{
		"modalidadeLicitacao": fieldSchema(),
		"participacao":        participacaoSchema(),
	}))

	prazosBlockSchema = mustSchema(objectSchema(map[string]any{
		"prazos": prazosSchema(),
	}))

	documentosBlockSchema = mustSchema(objectSchema(map[string]any{
		"requisitos": requisitosSchema(),
	}))

	visitaPropostaBlockSchema = mustSchema(objectSchema(map[string]any{
		"visitaTecnica": boolFieldSchema(),
		"proposta":      objectSchema(map[string]any{"validadeProposta": fieldSchema()}),
	}))

	sessaoBlockSchema = mustSchema(objectSchema(map[string]any{
		"sessao": sessaoSchema(),
	}))

	pagamentoBlockSchema = mustSchema(objectSchema(map[string]any{
		"outrosEdital": objectSchema(map[string]any{"mecanismoPagamento": fieldSchema()}),
	}))

	analiseBlockSchema = mustSchema(objectSchema(map[string]any{
		"responsavelAnalise": fieldSchema(),
		"pontuacao":          map[string]any{"type": "integer"},
		"recomendacao":       fieldSchema(),
	}))

	fullChecklistSchema = mustSchema(objectSchema(map[string]any{
		"edital":              editalInfoSchema(),
		"modalidadeLicitacao": fieldSchema(),
		"participacao":        participacaoSchema(),
		"prazos":              prazosSchema(),
		"requisitos":          requisitosSchema(),
		"visitaTecnica":       boolFieldSchema(),
		"proposta":            objectSchema(map[string]any{"validadeProposta": fieldSchema()}),
		"sessao":              sessaoSchema(),
		"outrosEdital":        objectSchema(map[string]any{"mecanismoPagamento": fieldSchema()}),
		"responsavelAnalise":  fieldSchema(),
		"pontuacao":           map[string]any{"type": "integer"},
		"recomendacao":        fieldSchema(),
	}))
)
