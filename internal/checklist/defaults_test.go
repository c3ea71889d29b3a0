package checklist

import "testing"

func TestApplyDefaultsTotality(t *testing.T) {
	data := ApplyDefaults(map[string]any{})

	stringKeys := []string{"modalidadeLicitacao", "responsavelAnalise", "recomendacao"}
	for _, key := range stringKeys {
		if _, ok := data[key].(string); !ok {
			t.Fatalf("%s should default to a string, got %T", key, data[key])
		}
	}
	if _, ok := data["visitaTecnica"].(bool); !ok {
		t.Fatalf("visitaTecnica should default to bool, got %T", data["visitaTecnica"])
	}
	if _, ok := data["pontuacao"].(int); !ok {
		t.Fatalf("pontuacao should default to int, got %T", data["pontuacao"])
	}
	listKeys := []string{"documentos", "requisitos"}
	for _, key := range listKeys {
		if _, ok := data[key].([]any); !ok {
			t.Fatalf("%s should default to a list, got %T", key, data[key])
		}
	}
	subtreeKeys := []string{"edital", "participacao", "prazos", "proposta", "sessao", "outrosEdital", "evidence"}
	for _, key := range subtreeKeys {
		if _, ok := data[key].(map[string]any); !ok {
			t.Fatalf("%s should default to an object, got %T", key, data[key])
		}
	}
	if data["schemaVersion"] != SchemaVersion {
		t.Fatalf("schemaVersion = %v, want %d", data["schemaVersion"], SchemaVersion)
	}

	edital := data["edital"].(map[string]any)
	if edital["orgao"] != "" {
		t.Fatalf("edital.orgao should default to empty string")
	}
	participacao := data["participacao"].(map[string]any)
	if participacao["permiteConsorcio"] != false {
		t.Fatalf("participacao.permiteConsorcio should default to false")
	}
	prazos := data["prazos"].(map[string]any)
	enviar := prazos["enviarPropostaAte"].(map[string]any)
	if enviar["data"] != "" || enviar["horario"] != "" {
		t.Fatalf("prazos.enviarPropostaAte should default to empty date/time")
	}
}

func TestApplyDefaultsPreservesValues(t *testing.T) {
	data := ApplyDefaults(map[string]any{
		"edital":        map[string]any{"orgao": "Prefeitura Municipal de X"},
		"pontuacao":     72,
		"schemaVersion": 2,
	})
	edital := data["edital"].(map[string]any)
	if edital["orgao"] != "Prefeitura Municipal de X" {
		t.Fatalf("existing value overwritten: %v", edital["orgao"])
	}
	if edital["objeto"] != "" {
		t.Fatalf("missing sibling keys should still be defaulted")
	}
	if data["pontuacao"] != 72 {
		t.Fatalf("existing pontuacao overwritten: %v", data["pontuacao"])
	}
}

func TestApplyDefaultsDerivesDocumentos(t *testing.T) {
	data := ApplyDefaults(map[string]any{
		"requisitos": []any{
			map[string]any{"categoria": "Documentação", "referencia": "6.1", "documento": "Contrato social", "solicitado": true, "status": "", "observacao": "", "local": "ED"},
			map[string]any{"categoria": "Declarações", "referencia": "6.2", "documento": "Declaração MPE", "solicitado": true, "status": "", "observacao": "", "local": "ED"},
			map[string]any{"categoria": "Documentação", "referencia": "6.3", "documento": "Certidão negativa", "solicitado": true, "status": "", "observacao": "", "local": "TR"},
		},
	})
	documentos := data["documentos"].([]any)
	if len(documentos) != 2 {
		t.Fatalf("expected 2 categoria groups, got %d", len(documentos))
	}
	first := documentos[0].(map[string]any)
	if first["categoria"] != "Documentação" {
		t.Fatalf("encounter order not preserved, got %v", first["categoria"])
	}
	itens := first["itens"].([]any)
	if len(itens) != 2 {
		t.Fatalf("expected 2 itens in first group, got %d", len(itens))
	}
}
