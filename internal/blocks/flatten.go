package blocks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// decodeStrict parses a block result, rejecting unknown fields and trailing
// content so an out-of-schema response fails loudly.
func decodeStrict(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("block result does not match schema: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("block result has trailing content")
	}
	return nil
}

// setField projects f into data[key]; evidence, when present, mirrors the
// same key in ev.
func setField(data, ev map[string]any, key string, f Field) {
	data[key] = f.Value
	if f.Evidence != nil {
		ev[key] = *f.Evidence
	}
}

func setBool(data, ev map[string]any, key string, f BoolField) {
	data[key] = f.Value
	if f.Evidence != nil {
		ev[key] = *f.Evidence
	}
}

func setDeadline(data, ev map[string]any, key string, d Deadline) {
	inner := map[string]any{}
	innerEv := map[string]any{}
	setField(inner, innerEv, "data", d.Data)
	setField(inner, innerEv, "horario", d.Horario)
	data[key] = inner
	if len(innerEv) > 0 {
		ev[key] = innerEv
	}
}

func flattenEdital(raw json.RawMessage) (map[string]any, map[string]any, error) {
	var r editalResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, nil, err
	}
	inner := map[string]any{}
	innerEv := map[string]any{}
	setField(inner, innerEv, "licitacao", r.Edital.Licitacao)
	setField(inner, innerEv, "edital", r.Edital.Edital)
	setField(inner, innerEv, "orgao", r.Edital.Orgao)
	setField(inner, innerEv, "objeto", r.Edital.Objeto)
	setField(inner, innerEv, "dataSessao", r.Edital.DataSessao)
	setField(inner, innerEv, "portal", r.Edital.Portal)
	setField(inner, innerEv, "numeroProcessoInterno", r.Edital.NumeroProcessoInterno)
	setField(inner, innerEv, "totalReais", r.Edital.TotalReais)
	setField(inner, innerEv, "valorEnergia", r.Edital.ValorEnergia)
	setField(inner, innerEv, "volumeEnergia", r.Edital.VolumeEnergia)
	setField(inner, innerEv, "vigenciaContrato", r.Edital.VigenciaContrato)
	setField(inner, innerEv, "modalidadeConcessionaria", r.Edital.ModalidadeConcessionaria)
	setField(inner, innerEv, "prazoInicioInjecao", r.Edital.PrazoInicioInjecao)

	flat := map[string]any{"edital": inner}
	ev := map[string]any{}
	if len(innerEv) > 0 {
		ev["edital"] = innerEv
	}
	return flat, ev, nil
}

func flattenModalidade(raw json.RawMessage) (map[string]any, map[string]any, error) {
	var r modalidadeResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, nil, err
	}
	flat := map[string]any{}
	ev := map[string]any{}
	setField(flat, ev, "modalidadeLicitacao", r.ModalidadeLicitacao)

	part := map[string]any{}
	partEv := map[string]any{}
	setBool(part, partEv, "permiteConsorcio", r.Participacao.PermiteConsorcio)
	setBool(part, partEv, "beneficiosMPE", r.Participacao.BeneficiosMPE)
	setField(part, partEv, "itemEdital", r.Participacao.ItemEdital)
	flat["participacao"] = part
	if len(partEv) > 0 {
		ev["participacao"] = partEv
	}
	return flat, ev, nil
}

func flattenPrazos(raw json.RawMessage) (map[string]any, map[string]any, error) {
	var r prazosResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, nil, err
	}
	inner := map[string]any{}
	innerEv := map[string]any{}
	setDeadline(inner, innerEv, "enviarPropostaAte", r.Prazos.EnviarPropostaAte)
	setDeadline(inner, innerEv, "esclarecimentosAte", r.Prazos.EsclarecimentosAte)
	setDeadline(inner, innerEv, "impugnacaoAte", r.Prazos.ImpugnacaoAte)
	setField(inner, innerEv, "contatoEsclarecimentoImpugnacao", r.Prazos.ContatoEsclarecimentoImpugnacao)

	flat := map[string]any{"prazos": inner}
	ev := map[string]any{}
	if len(innerEv) > 0 {
		ev["prazos"] = innerEv
	}
	return flat, ev, nil
}

func flattenDocumentos(raw json.RawMessage) (map[string]any, map[string]any, error) {
	var r documentosResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, nil, err
	}
	requisitos := make([]any, 0, len(r.Requisitos))
	reqEv := map[string]any{}
	for i, req := range r.Requisitos {
		requisitos = append(requisitos, map[string]any{
			"categoria":  req.Categoria,
			"referencia": req.Referencia,
			"local":      req.Local,
			"documento":  req.Documento,
			"solicitado": req.Solicitado,
			"status":     req.Status,
			"observacao": req.Observacao,
		})
		if req.Evidence != nil {
			reqEv[strconv.Itoa(i)] = *req.Evidence
		}
	}

	flat := map[string]any{
		"requisitos": requisitos,
		"documentos": RequisitosToDocumentos(requisitos),
	}
	ev := map[string]any{}
	if len(reqEv) > 0 {
		ev["requisitos"] = reqEv
	}
	return flat, ev, nil
}

func flattenVisitaProposta(raw json.RawMessage) (map[string]any, map[string]any, error) {
	var r visitaPropostaResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, nil, err
	}
	flat := map[string]any{}
	ev := map[string]any{}
	setBool(flat, ev, "visitaTecnica", r.VisitaTecnica)

	prop := map[string]any{}
	propEv := map[string]any{}
	setField(prop, propEv, "validadeProposta", r.Proposta.ValidadeProposta)
	flat["proposta"] = prop
	if len(propEv) > 0 {
		ev["proposta"] = propEv
	}
	return flat, ev, nil
}

func flattenSessao(raw json.RawMessage) (map[string]any, map[string]any, error) {
	var r sessaoResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, nil, err
	}
	inner := map[string]any{}
	innerEv := map[string]any{}
	setField(inner, innerEv, "diferencaEntreLances", r.Sessao.DiferencaEntreLances)
	setField(inner, innerEv, "horasPropostaAjustada", r.Sessao.HorasPropostaAjustada)
	setField(inner, innerEv, "abertoFechado", r.Sessao.AbertoFechado)

	flat := map[string]any{"sessao": inner}
	ev := map[string]any{}
	if len(innerEv) > 0 {
		ev["sessao"] = innerEv
	}
	return flat, ev, nil
}

func flattenPagamento(raw json.RawMessage) (map[string]any, map[string]any, error) {
	var r pagamentoResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, nil, err
	}
	inner := map[string]any{}
	innerEv := map[string]any{}
	setField(inner, innerEv, "mecanismoPagamento", r.OutrosEdital.MecanismoPagamento)

	flat := map[string]any{"outrosEdital": inner}
	ev := map[string]any{}
	if len(innerEv) > 0 {
		ev["outrosEdital"] = innerEv
	}
	return flat, ev, nil
}

func flattenAnalise(raw json.RawMessage) (map[string]any, map[string]any, error) {
	var r analiseResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, nil, err
	}
	flat := map[string]any{}
	ev := map[string]any{}
	setField(flat, ev, "responsavelAnalise", r.ResponsavelAnalise)
	flat["pontuacao"] = r.Pontuacao
	setField(flat, ev, "recomendacao", r.Recomendacao)
	return flat, ev, nil
}

func flattenFull(raw json.RawMessage) (map[string]any, map[string]any, error) {
	var r fullResult
	if err := decodeStrict(raw, &r); err != nil {
		return nil, nil, err
	}
	parts := []struct {
		payload any
		flatten FlattenFunc
	}{
		{editalResult{Edital: r.Edital}, flattenEdital},
		{modalidadeResult{ModalidadeLicitacao: r.ModalidadeLicitacao, Participacao: r.Participacao}, flattenModalidade},
		{prazosResult{Prazos: r.Prazos}, flattenPrazos},
		{documentosResult{Requisitos: r.Requisitos}, flattenDocumentos},
		{visitaPropostaResult{VisitaTecnica: r.VisitaTecnica, Proposta: r.Proposta}, flattenVisitaProposta},
		{sessaoResult{Sessao: r.Sessao}, flattenSessao},
		{pagamentoResult{OutrosEdital: r.OutrosEdital}, flattenPagamento},
		{analiseResult{ResponsavelAnalise: r.ResponsavelAnalise, Pontuacao: r.Pontuacao, Recomendacao: r.Recomendacao}, flattenAnalise},
	}

	flat := map[string]any{}
	ev := map[string]any{}
	for _, part := range parts {
		encoded, err := json.Marshal(part.payload)
		if err != nil {
			return nil, nil, err
		}
		partFlat, partEv, err := part.flatten(encoded)
		if err != nil {
			return nil, nil, err
		}
		for k, v := range partFlat {
			flat[k] = v
		}
		for k, v := range partEv {
			ev[k] = v
		}
	}
	return flat, ev, nil
}

// RequisitosToDocumentos groups flat requisito maps into the checklist's
// documentos shape, one entry per categoria in encounter order.
func RequisitosToDocumentos(requisitos []any) []any {
	type group struct {
		categoria string
		itens     []any
	}
	var groups []group
	index := map[string]int{}
	for _, raw := range requisitos {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		categoria, _ := item["categoria"].(string)
		if categoria == "" {
			categoria = "Outros"
		}
		entry := map[string]any{
			"referencia": item["referencia"],
			"local":      item["local"],
			"documento":  item["documento"],
			"solicitado": item["solicitado"],
			"status":     item["status"],
			"observacao": item["observacao"],
		}
		if i, ok := index[categoria]; ok {
			groups[i].itens = append(groups[i].itens, entry)
			continue
		}
		index[categoria] = len(groups)
		groups = append(groups, group{categoria: categoria, itens: []any{entry}})
	}
	out := make([]any, 0, len(groups))
	for _, g := range groups {
		out = append(out, map[string]any{"categoria": g.categoria, "itens": g.itens})
	}
	return out
}
