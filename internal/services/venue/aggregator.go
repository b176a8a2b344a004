package venue

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/solmesh/trade-engine/internal/domain"
)

// AggregatorAdapter routes through an off-chain routing aggregator. It is
// the highest-priority venue because the aggregator already splits across
// the individual AMMs.
type AggregatorAdapter struct {
	baseURL string
	httpc   *http.Client
}

func NewAggregatorAdapter(baseURL string, timeout time.Duration) *AggregatorAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AggregatorAdapter{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (a *AggregatorAdapter) ID() domain.VenueID { return domain.VenueAggregator }

// aggregatorQuote is the aggregator's native quote response. The raw body
// is kept alongside because the swap-instructions endpoint wants it echoed
// back verbatim.
type aggregatorQuote struct {
	InputMint      string `json:"inputMint"`
	InAmount       string `json:"inAmount"`
	OutputMint     string `json:"outputMint"`
	OutAmount      string `json:"outAmount"`
	OtherThreshold string `json:"otherAmountThreshold"`
	FeeAmount      string `json:"feeAmount"`
	PriceImpactBps uint16 `json:"priceImpactBps"`
	RoutePlan      []struct {
		SwapInfo struct {
			AmmKey     string `json:"ammKey"`
			Label      string `json:"label"`
			InputMint  string `json:"inputMint"`
			OutputMint string `json:"outputMint"`
		} `json:"swapInfo"`
		Percent int `json:"percent"`
	} `json:"routePlan"`

	raw []byte `json:"-"`
}

type aggregatorInstruction struct {
	ProgramID string `json:"programId"`
	Accounts  []struct {
		Pubkey     string `json:"pubkey"`
		IsSigner   bool   `json:"isSigner"`
		IsWritable bool   `json:"isWritable"`
	} `json:"accounts"`
	Data string `json:"data"`
}

type aggregatorSwapResponse struct {
	ComputeBudgetInstructions []aggregatorInstruction `json:"computeBudgetInstructions"`
	SetupInstructions         []aggregatorInstruction `json:"setupInstructions"`
	SwapInstruction           *aggregatorInstruction  `json:"swapInstruction"`
	CleanupInstruction        *aggregatorInstruction  `json:"cleanupInstruction"`
}

func (a *AggregatorAdapter) IsAvailable(ctx context.Context, mint solana.PublicKey) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/tokens/"+mint.String(), nil)
	if err != nil {
		return false
	}
	resp, err := a.httpc.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("[aggregator] availability probe failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (a *AggregatorAdapter) GetQuote(ctx context.Context, req *QuoteRequest) (*domain.VenueQuote, error) {
	q := url.Values{}
	q.Set("inputMint", req.InputMint.String())
	q.Set("outputMint", req.OutputMint.String())
	q.Set("amount", req.InputAmount.String())
	q.Set("slippageBps", strconv.Itoa(int(req.SlippageBps)))

	body, err := a.get(ctx, "/quote?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var native aggregatorQuote
	if err := sonic.Unmarshal(body, &native); err != nil {
		return nil, fmt.Errorf("decode aggregator quote: %w", err)
	}
	native.raw = body

	outAmount, ok := new(big.Int).SetString(native.OutAmount, 10)
	if !ok {
		return nil, fmt.Errorf("aggregator quote: bad outAmount %q", native.OutAmount)
	}
	minOut, ok := new(big.Int).SetString(native.OtherThreshold, 10)
	if !ok {
		minOut = minAmountOut(outAmount, req.SlippageBps)
	}
	feeAmount := big.NewInt(0)
	if native.FeeAmount != "" {
		if v, ok := new(big.Int).SetString(native.FeeAmount, 10); ok {
			feeAmount = v
		}
	}

	quote := &domain.VenueQuote{
		Venue:          domain.VenueAggregator,
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		InputAmount:    new(big.Int).Set(req.InputAmount),
		OutputAmount:   outAmount,
		MinAmountOut:   minOut,
		FeeAmount:      feeAmount,
		PriceImpactBps: native.PriceImpactBps,
		Route:          routeMints(req, &native),
		FetchedAt:      time.Now(),
		Meta:           &native,
	}
	if len(native.RoutePlan) > 0 {
		if market, err := solana.PublicKeyFromBase58(native.RoutePlan[0].SwapInfo.AmmKey); err == nil {
			quote.Market = market
		}
	}
	return quote, nil
}

func (a *AggregatorAdapter) BuildInstructions(ctx context.Context, quote *domain.VenueQuote, trader solana.PublicKey) ([]solana.Instruction, error) {
	if err := validateQuote(quote, domain.VenueAggregator); err != nil {
		return nil, err
	}
	native, ok := quote.Meta.(*aggregatorQuote)
	if !ok {
		return nil, fmt.Errorf("quote is missing aggregator payload")
	}

	swapReq := struct {
		UserPublicKey string          `json:"userPublicKey"`
		QuoteResponse json.RawMessage `json:"quoteResponse"`
	}{trader.String(), native.raw}
	reqBody, err := sonic.Marshal(&swapReq)
	if err != nil {
		return nil, fmt.Errorf("encode swap-instructions request: %w", err)
	}

	body, err := a.post(ctx, "/swap-instructions", reqBody)
	if err != nil {
		return nil, err
	}

	var swap aggregatorSwapResponse
	if err := sonic.Unmarshal(body, &swap); err != nil {
		return nil, fmt.Errorf("decode swap-instructions response: %w", err)
	}
	if swap.SwapInstruction == nil {
		return nil, fmt.Errorf("aggregator returned no swap instruction")
	}

	// The aggregator's own compute-budget instructions are discarded; the
	// fee strategy owns the budget for every venue.
	ordered := make([]aggregatorInstruction, 0, len(swap.SetupInstructions)+2)
	ordered = append(ordered, swap.SetupInstructions...)
	ordered = append(ordered, *swap.SwapInstruction)
	if swap.CleanupInstruction != nil {
		ordered = append(ordered, *swap.CleanupInstruction)
	}

	instructions := make([]solana.Instruction, 0, len(ordered))
	for i := range ordered {
		ix, err := decodeAggregatorInstruction(&ordered[i])
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ix)
	}
	return instructions, nil
}

func decodeAggregatorInstruction(native *aggregatorInstruction) (solana.Instruction, error) {
	programID, err := solana.PublicKeyFromBase58(native.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("bad program id %q: %w", native.ProgramID, err)
	}
	data, err := base64.StdEncoding.DecodeString(native.Data)
	if err != nil {
		return nil, fmt.Errorf("bad instruction data: %w", err)
	}

	accounts := make(solana.AccountMetaSlice, 0, len(native.Accounts))
	for _, acc := range native.Accounts {
		pk, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("bad account %q: %w", acc.Pubkey, err)
		}
		accounts = append(accounts, &solana.AccountMeta{
			PublicKey:  pk,
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		})
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

func routeMints(req *QuoteRequest, native *aggregatorQuote) []solana.PublicKey {
	route := []solana.PublicKey{req.InputMint}
	for _, hop := range native.RoutePlan {
		out, err := solana.PublicKeyFromBase58(hop.SwapInfo.OutputMint)
		if err != nil {
			continue
		}
		route = append(route, out)
	}
	if len(route) == 1 {
		route = append(route, req.OutputMint)
	}
	return route
}

func (a *AggregatorAdapter) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return a.do(req)
}

func (a *AggregatorAdapter) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

func (a *AggregatorAdapter) do(req *http.Request) ([]byte, error) {
	resp, err := a.httpc.Do(req)
	if err != nil {
		return nil, domain.NewTradeError(domain.ErrVenueUnavailable,
			fmt.Sprintf("aggregator unreachable: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read aggregator response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewTradeError(domain.ErrVenueUnavailable,
			fmt.Sprintf("aggregator returned %d: %s", resp.StatusCode, truncate(body, 200)))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
