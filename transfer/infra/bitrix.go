package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"deal-transfer/transfer/domain"

	"golang.org/x/time/rate"
)

const (
	methodDealList   = "crm.deal.list.json"
	methodDealUpdate = "crm.deal.update.json"

	// limite documentado do Bitrix24 para webhooks de entrada.
	defaultBitrixRPS = 2
	maxBodyBytes     = 1 << 20
)

// BitrixClient fala com o REST do Bitrix24 através de um webhook de entrada.
//
// O webhook já carrega o token no caminho (https://<portal>/rest/<user>/<token>/),
// então a URL inteira é segredo e nunca vai para o log.
//
// Nenhuma operação devolve erro: falhas viram linha no log + resultado explícito.
type BitrixClient struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	log     domain.Sink
}

type BitrixOption func(*BitrixClient)

func WithHTTPClient(c *http.Client) BitrixOption {
	return func(b *BitrixClient) { b.http = c }
}

// WithRequestRate define quantas requisições por segundo o cliente faz.
// rps <= 0 desliga o controle de ritmo.
func WithRequestRate(rps float64) BitrixOption {
	return func(b *BitrixClient) {
		if rps <= 0 {
			b.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func WithRequestTimeout(d time.Duration) BitrixOption {
	return func(b *BitrixClient) { b.timeout = d }
}

func NewBitrixClient(webhookURL string, sink domain.Sink, opts ...BitrixOption) *BitrixClient {
	base := strings.TrimSpace(webhookURL)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	c := &BitrixClient{
		base:    base,
		http:    http.DefaultClient,
		limiter: rate.NewLimiter(defaultBitrixRPS, 1),
		timeout: 30 * time.Second,
		log:     sink,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listResponse struct {
	// ponteiro para distinguir "result": [] de resposta sem result (erro do Bitrix).
	Result *[]domain.Deal `json:"result"`
}

type updateResponse struct {
	Result json.RawMessage `json:"result"`
}

// ListDeals implementa domain.CRM.
//
// O Bitrix devolve até 50 itens por página e ignora qualquer "limit": o corte
// para `limit` é feito aqui.
func (c *BitrixClient) ListDeals(ctx context.Context, stageID string, limit int) domain.FetchResult {
	if limit <= 0 {
		return domain.FetchResult{}
	}

	q := url.Values{}
	q.Set("order[ID]", "ASC")
	q.Set("filter[STAGE_ID]", stageID)
	q.Add("select[]", "ID")
	q.Set("start", "-1")

	status, body, err := c.do(ctx, http.MethodGet, methodDealList, q)
	if err == nil && (status < 200 || status > 299) {
		err = fmt.Errorf("unexpected status %d: %s", status, snippet(body))
	}
	var resp listResponse
	if err == nil {
		if uerr := json.Unmarshal(body, &resp); uerr != nil {
			err = fmt.Errorf("decode response: %w", uerr)
		} else if resp.Result == nil {
			err = errors.New("response has no result: " + snippet(body))
		}
	}
	if err != nil {
		c.logf("error fetching deals: %s", c.scrub(err))
		return domain.FetchResult{Err: err}
	}

	deals := *resp.Result
	if len(deals) > limit {
		deals = deals[:limit]
	}
	return domain.FetchResult{Deals: deals}
}

// UpdateDealStage implementa domain.CRM.
func (c *BitrixClient) UpdateDealStage(ctx context.Context, id domain.DealID, stageID string) domain.UpdateOutcome {
	q := url.Values{}
	q.Set("id", string(id))
	q.Set("fields[STAGE_ID]", stageID)

	out := domain.UpdateOutcome{DealID: id}

	status, body, err := c.do(ctx, http.MethodPost, methodDealUpdate, q)
	if err == nil && (status < 200 || status > 299) {
		err = fmt.Errorf("unexpected status %d: %s", status, snippet(body))
	}
	var resp updateResponse
	if err == nil {
		if uerr := json.Unmarshal(body, &resp); uerr != nil {
			err = fmt.Errorf("decode response: %w", uerr)
		}
	}
	if err != nil {
		out.Status = domain.UpdateFailed
		out.Detail = c.scrub(err)
		c.logf("request for deal %s failed: %s", id, out.Detail)
		return out
	}

	if !truthy(resp.Result) {
		out.Status = domain.UpdateRejected
		out.Detail = string(bytes.TrimSpace(body))
		c.logf("error updating deal %s: %s", id, out.Detail)
		return out
	}

	out.Status = domain.UpdateMoved
	c.logf("deal %s moved to stage %s", id, stageID)
	return out
}

func (c *BitrixClient) do(ctx context.Context, method, apiMethod string, q url.Values) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limiter: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// os parâmetros vão na query também no POST, como o Bitrix aceita.
	req, err := http.NewRequestWithContext(ctx, method, c.base+apiMethod+"?"+q.Encode(), nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *BitrixClient) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Writef(format, args...)
	}
}

// scrub remove a URL do webhook (que contém o token) da mensagem de erro.
func (c *BitrixClient) scrub(err error) string {
	msg := err.Error()
	if u, perr := url.Parse(c.base); perr == nil && u.Host != "" {
		redacted := u.Scheme + "://" + u.Host + "/rest/***/"
		msg = strings.ReplaceAll(msg, c.base, redacted)
	}
	return msg
}

// truthy segue a regra de "verdadeiro" de JSON dinâmico:
// ausente, null, false, 0 e "" são falsos.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch string(raw) {
	case "null", "false", `""`:
		return false
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return f != 0
	}
	return true
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
