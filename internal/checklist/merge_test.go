package checklist

import (
	"reflect"
	"testing"
)

func TestDeepMergeEmptyBlockIsIdentity(t *testing.T) {
	dst := map[string]any{"edital": map[string]any{"orgao": "Prefeitura"}}
	want := map[string]any{"edital": map[string]any{"orgao": "Prefeitura"}}
	DeepMerge(dst, map[string]any{})
	if !reflect.DeepEqual(dst, want) {
		t.Fatalf("merging an empty block changed the accumulator: %v", dst)
	}
}

func TestDeepMergeFillsEmptyString(t *testing.T) {
	dst := map[string]any{"modalidadeLicitacao": ""}
	DeepMerge(dst, map[string]any{"modalidadeLicitacao": "Pregão Eletrônico"})
	if dst["modalidadeLicitacao"] != "Pregão Eletrônico" {
		t.Fatalf("non-empty value should fill an empty string, got %v", dst["modalidadeLicitacao"])
	}
}

func TestDeepMergeKeepsNonEmptyValue(t *testing.T) {
	dst := map[string]any{"modalidadeLicitacao": "Pregão Eletrônico"}
	DeepMerge(dst, map[string]any{"modalidadeLicitacao": ""})
	if dst["modalidadeLicitacao"] != "Pregão Eletrônico" {
		t.Fatalf("empty value should not overwrite, got %v", dst["modalidadeLicitacao"])
	}
}

func TestDeepMergeEarlierBlockWins(t *testing.T) {
	dst := map[string]any{"modalidadeLicitacao": "Pregão Eletrônico"}
	DeepMerge(dst, map[string]any{"modalidadeLicitacao": "Concorrência"})
	if dst["modalidadeLicitacao"] != "Pregão Eletrônico" {
		t.Fatalf("a later non-empty value must not overwrite an earlier one, got %v", dst["modalidadeLicitacao"])
	}
}

func TestDeepMergeRecursesIntoMaps(t *testing.T) {
	dst := map[string]any{"edital": map[string]any{"orgao": "Prefeitura", "objeto": ""}}
	DeepMerge(dst, map[string]any{"edital": map[string]any{"orgao": "Outro", "objeto": "Registro de preços"}})
	edital := dst["edital"].(map[string]any)
	if edital["orgao"] != "Prefeitura" {
		t.Fatalf("nested non-empty value overwritten: %v", edital["orgao"])
	}
	if edital["objeto"] != "Registro de preços" {
		t.Fatalf("nested empty value not filled: %v", edital["objeto"])
	}
}

func TestDeepMergeReplacesLists(t *testing.T) {
	dst := map[string]any{"requisitos": []any{"a"}}
	DeepMerge(dst, map[string]any{"requisitos": []any{"b", "c"}})
	got := dst["requisitos"].([]any)
	if len(got) != 2 || got[0] != "b" {
		t.Fatalf("lists should be replaced wholesale, got %v", got)
	}
}

func TestDeepMergeNilFilled(t *testing.T) {
	dst := map[string]any{"pontuacao": nil}
	DeepMerge(dst, map[string]any{"pontuacao": 72})
	if dst["pontuacao"] != 72 {
		t.Fatalf("nil should be treated as absent, got %v", dst["pontuacao"])
	}
}
