package checklist

import "hilicita-backend/internal/blocks"

// SchemaVersion is the current checklist shape.
const SchemaVersion = 2

// ApplyDefaults fills every required key of the checklist schema with a typed
// default, so the persisted document is total regardless of what the LLM
// omitted. The input map is mutated and returned.
func ApplyDefaults(data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}

	ensureSubtree(data, "edital", map[string]any{
		"licitacao": "", "edital": "", "orgao": "", "objeto": "",
		"dataSessao": "", "portal": "", "numeroProcessoInterno": "",
		"totalReais": "", "valorEnergia": "", "volumeEnergia": "",
		"vigenciaContrato": "", "modalidadeConcessionaria": "", "prazoInicioInjecao": "",
	})
	ensureString(data, "modalidadeLicitacao")
	ensureSubtree(data, "participacao", map[string]any{
		"permiteConsorcio": false, "beneficiosMPE": false, "itemEdital": "",
	})
	ensureSubtree(data, "prazos", map[string]any{
		"enviarPropostaAte":               map[string]any{"data": "", "horario": ""},
		"esclarecimentosAte":              map[string]any{"data": "", "horario": ""},
		"impugnacaoAte":                   map[string]any{"data": "", "horario": ""},
		"contatoEsclarecimentoImpugnacao": "",
	})
	ensureList(data, "requisitos")
	ensureList(data, "documentos")
	ensureBool(data, "visitaTecnica")
	ensureSubtree(data, "proposta", map[string]any{"validadeProposta": ""})
	ensureSubtree(data, "sessao", map[string]any{
		"diferencaEntreLances": "", "horasPropostaAjustada": "", "abertoFechado": "",
	})
	ensureSubtree(data, "outrosEdital", map[string]any{"mecanismoPagamento": ""})
	ensureString(data, "responsavelAnalise")
	ensureString(data, "recomendacao")
	if _, ok := data["pontuacao"]; !ok {
		data["pontuacao"] = 0
	}
	if _, ok := data["schemaVersion"]; !ok {
		data["schemaVersion"] = SchemaVersion
	}
	if _, ok := data["evidence"].(map[string]any); !ok {
		data["evidence"] = map[string]any{}
	}

	// documentos stays derivable from requisitos.
	documentos, _ := data["documentos"].([]any)
	requisitos, _ := data["requisitos"].([]any)
	if len(documentos) == 0 && len(requisitos) > 0 {
		data["documentos"] = blocks.RequisitosToDocumentos(requisitos)
	}

	return data
}

func ensureSubtree(data map[string]any, key string, defaults map[string]any) {
	sub, ok := data[key].(map[string]any)
	if !ok {
		data[key] = defaults
		return
	}
	for k, v := range defaults {
		if _, ok := sub[k]; ok {
			if nested, isMap := v.(map[string]any); isMap {
				if existing, isMap := sub[k].(map[string]any); isMap {
					for nk, nv := range nested {
						if _, ok := existing[nk]; !ok {
							existing[nk] = nv
						}
					}
					continue
				}
			}
			continue
		}
		sub[k] = v
	}
}

func ensureString(data map[string]any, key string) {
	if _, ok := data[key].(string); !ok {
		data[key] = ""
	}
}

func ensureBool(data map[string]any, key string) {
	if _, ok := data[key]; !ok {
		data[key] = false
	}
}

func ensureList(data map[string]any, key string) {
	if _, ok := data[key].([]any); !ok {
		data[key] = []any{}
	}
}
