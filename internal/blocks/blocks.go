package blocks

import (
	"encoding/json"
	"strings"
)

// Block keys, in the fixed merge order.
const (
	KeyEdital                 = "edital"
	KeyModalidadeParticipacao = "modalidade_participacao"
	KeyPrazos                 = "prazos"
	KeyDocumentos             = "documentos"
	KeyVisitaProposta         = "visita_proposta"
	KeySessaoDisputa          = "sessao_disputa"
	KeyPagamentoContrato      = "pagamento_contrato"
	KeyAnalise                = "analise"
)

// Block is one semantic partition of the checklist: a retrieval query, the
// section-hint tags that boost and expand it, the LLM contract (prompt +
// strict JSON schema) and the projection into the checklist shape.
type Block struct {
	Key          string
	Query        string
	Hints        []string
	SystemPrompt string
	SchemaName   string
	Schema       json.RawMessage
	Flatten      FlattenFunc
}

// FlattenFunc parses a raw block result and projects it into the checklist
// shape plus a sibling evidence tree.
type FlattenFunc func(raw json.RawMessage) (flat map[string]any, evidence map[string]any, err error)

// hintPhrases expand a block's search query with the vocabulary of its
// section tags.
var hintPhrases = map[string]string{
	"edital":         "edital objeto órgão licitação",
	"modalidade":     "modalidade pregão eletrônico concorrência participação",
	"prazos":         "prazos data horário esclarecimento impugnação",
	"documentos":     "documentação habilitação qualificação técnica jurídica fiscal econômica",
	"proposta":       "proposta validade visita técnica",
	"sessao_disputa": "sessão disputa lances modo aberto fechado",
	"pagamento":      "pagamento faturamento medição contrato",
	"analise":        "análise pontuação recomendação viabilidade",
}

// SearchQuery returns the canonical query expanded with the block's hint
// phrases.
func (b Block) SearchQuery() string {
	parts := []string{b.Query}
	for _, hint := range b.Hints {
		if phrase, ok := hintPhrases[hint]; ok {
			parts = append(parts, phrase)
		}
	}
	return strings.Join(parts, " ")
}

const promptPreamble = "Você é um especialista em licitações brasileiras. " +
	"Responda somente com JSON válido conforme o schema. " +
	"Cada campo é um objeto {value, evidence}: value recebe o dado extraído " +
	"(string vazia quando não encontrado; false para booleanos não aplicáveis) " +
	"e evidence recebe {trecho, ref, page} citando o texto do edital que " +
	"sustenta o valor, ou null quando não houver trecho. Não invente dados.\n\n"

// Blocks holds the eight checklist blocks in the fixed merge order. The order
// is part of the merge contract: a later block only fills keys the earlier
// blocks left empty.
var Blocks = []Block{
	{
		Key:   KeyEdital,
		Query: "identificação do edital órgão número objeto valor total processo interno data da sessão portal vigência",
		Hints: []string{"edital"},
		SystemPrompt: promptPreamble + `Extraia APENAS os dados de IDENTIFICAÇÃO DO EDITAL:
- licitacao: órgão ou entidade realizadora (ex.: PREFEITURA DE RECIFE)
- edital: número do edital (ex.: 026/2025-GC-SEPLAG-007)
- orgao: órgão/administração (ex.: Prefeitura da Cidade do Recife)
- objeto: resumo do objeto da licitação
- dataSessao: data e horário da sessão (DD/MM/AAAA HH:MM quando houver)
- portal: nome do portal (ex.: Licitar Digital)
- numeroProcessoInterno: número do processo/ADM
- totalReais: valor total em R$ (número e/ou por extenso quando houver)
- valorEnergia, volumeEnergia: quando o edital for de energia
- vigenciaContrato: prazo (ex.: 12 meses, Registro de Preço)
- modalidadeConcessionaria: modalidade e concessionária quando aplicável
- prazoInicioInjecao: quando aplicável`,
		SchemaName: "checklist_block_edital",
		Schema:     editalBlockSchema,
		Flatten:    flattenEdital,
	},
	{
		Key:   KeyModalidadeParticipacao,
		Query: "modalidade da licitação participação consórcio benefícios microempresa pequeno porte",
		Hints: []string{"modalidade", "edital"},
		SystemPrompt: promptPreamble + `Extraia APENAS MODALIDADE E PARTICIPAÇÃO:
- modalidadeLicitacao: tipo da licitação (ex.: Pregão Eletrônico, Concorrência)
- participacao.permiteConsorcio: true somente se o edital PERMITE participação em consórcio
- participacao.beneficiosMPE: true somente se há benefícios a microempresa/pequeno porte
- participacao.itemEdital: referência do edital que trata de participação/consórcio/MPE`,
		SchemaName: "checklist_block_modalidade_participacao",
		Schema:     modalidadeBlockSchema,
		Flatten:    flattenModalidade,
	},
	{
		Key:   KeyPrazos,
		Query: "prazos enviar proposta esclarecimentos impugnação data horário contato",
		Hints: []string{"prazos"},
		SystemPrompt: promptPreamble + `Extraia APENAS os PRAZOS do edital, com data e horário separados:
- enviarPropostaAte: limite para envio da proposta (ex.: data "10/02/2026", horario "9h00")
- esclarecimentosAte: limite para pedidos de esclarecimento
- impugnacaoAte: limite para impugnação
- contatoEsclarecimentoImpugnacao: canal ou sistema para envio
Mantenha o formato de data como no edital (DD/MM/AAAA) e horário como informado.`,
		SchemaName: "checklist_block_prazos",
		Schema:     prazosBlockSchema,
		Flatten:    flattenPrazos,
	},
	{
		Key:   KeyDocumentos,
		Query: "documentos exigidos habilitação qualificação técnica jurídica fiscal econômica declarações atestados",
		Hints: []string{"documentos"},
		SystemPrompt: promptPreamble + `Extraia APENAS a lista de DOCUMENTOS E QUALIFICAÇÃO exigidos, um requisito por item.

Para cada item use a categoria exata entre: "Atestado Técnico", "Documentação", "Qualificação Jurídica-Fiscal", "Qualificação Econômica", "Declarações", "Proposta", "Outros". Preencha:
- referencia: número ou item do edital (ex.: 6.2.1.1.1, 8.2 - a.1)
- local: TR ou ED quando o edital indicar
- documento: texto completo do documento exigido (não resuma)
- solicitado: true se o edital exige o documento
- status: string vazia
- observacao: quando houver

Extraia TODOS os itens listados, um por um. Não agrupe em um único resumo. Retorne array vazio se não houver seção de documentos.`,
		SchemaName: "checklist_block_documentos",
		Schema:     documentosBlockSchema,
		Flatten:    flattenDocumentos,
	},
	{
		Key:   KeyVisitaProposta,
		Query: "visita técnica obrigatória validade da proposta",
		Hints: []string{"proposta"},
		SystemPrompt: promptPreamble + `Extraia APENAS VISITA TÉCNICA e PROPOSTA:
- visitaTecnica: true SOMENTE se o edital exigir visita técnica OBRIGATÓRIA
- proposta.validadeProposta: prazo de validade da proposta (ex.: 60 dias)`,
		SchemaName: "checklist_block_visita_proposta",
		Schema:     visitaPropostaBlockSchema,
		Flatten:    flattenVisitaProposta,
	},
	{
		Key:   KeySessaoDisputa,
		Query: "sessão de disputa lances diferença entre lances modo aberto fechado proposta ajustada",
		Hints: []string{"sessao_disputa"},
		SystemPrompt: promptPreamble + `Extraia APENAS dados da SESSÃO DE DISPUTA:
- sessao.diferencaEntreLances: valor ou percentual mínimo entre lances
- sessao.horasPropostaAjustada: prazo para proposta ajustada
- sessao.abertoFechado: se o modo de disputa é aberto ou fechado`,
		SchemaName: "checklist_block_sessao_disputa",
		Schema:     sessaoBlockSchema,
		Flatten:    flattenSessao,
	},
	{
		Key:   KeyPagamentoContrato,
		Query: "mecanismo de pagamento faturamento medição condições contratuais",
		Hints: []string{"pagamento"},
		SystemPrompt: promptPreamble + `Extraia APENAS o MECANISMO DE PAGAMENTO do contrato:
- outrosEdital.mecanismoPagamento: forma de pagamento (ex.: faturamento mensal, medição). Use string vazia quando não encontrado.`,
		SchemaName: "checklist_block_pagamento_contrato",
		Schema:     pagamentoBlockSchema,
		Flatten:    flattenPagamento,
	},
	{
		Key:   KeyAnalise,
		Query: "análise pontuação viabilidade clareza prazos recomendação",
		Hints: []string{"analise", "edital"},
		SystemPrompt: promptPreamble + `Com base no edital analisado, preencha a ANÁLISE FINAL:
- responsavelAnalise: string vazia (preenchido depois pelo usuário)
- pontuacao: inteiro de 0 a 100 considerando valor do contrato, clareza, viabilidade de participação e prazos
- recomendacao: uma ou duas frases objetivas`,
		SchemaName: "checklist_block_analise",
		Schema:     analiseBlockSchema,
		Flatten:    flattenAnalise,
	},
}

// Full is the single-call contract used by the legacy mode: the whole
// checklist schema in one request, flattened as one pseudo-block.
var Full = Block{
	Key:   "full",
	Query: "edital licitação órgão objeto valor total processo interno prazos proposta esclarecimento impugnação documentação qualificação técnica jurídica fiscal econômica visita técnica sessão",
	SystemPrompt: promptPreamble + `Preencha o checklist estruturado completo com base no edital: identificação, modalidade e participação, prazos, documentos exigidos (todos os itens, por categoria), visita técnica e proposta, sessão de disputa, mecanismo de pagamento e análise final (pontuação 0-100 e recomendação curta).`,
	SchemaName: "licitacao_checklist",
	Schema:     fullChecklistSchema,
	Flatten:    flattenFull,
}
