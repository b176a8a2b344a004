package venue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/solmesh/trade-engine/internal/domain"
)

// CLMMAdapter trades against a concentrated-liquidity AMM. Quoting goes
// through the venue's quote API because tick-walk math lives there; the
// swap instruction itself is assembled locally from the accounts the API
// returns.
type CLMMAdapter struct {
	programID solana.PublicKey
	quoteURL  string
	httpc     *http.Client
}

func NewCLMMAdapter(programID solana.PublicKey, quoteURL string, timeout time.Duration) *CLMMAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CLMMAdapter{
		programID: programID,
		quoteURL:  quoteURL,
		httpc:     &http.Client{Timeout: timeout},
	}
}

func (c *CLMMAdapter) ID() domain.VenueID { return domain.VenueCLMM }

// clmmQuote is the quote API's native response, carried in VenueQuote.Meta
// so build does not need a second API round trip.
type clmmQuote struct {
	Pool           string   `json:"pool"`
	InAmount       string   `json:"inAmount"`
	OutAmount      string   `json:"outAmount"`
	FeeAmount      string   `json:"feeAmount"`
	PriceImpactBps uint16   `json:"priceImpactBps"`
	AToB           bool     `json:"aToB"`
	MintA          string   `json:"mintA"`
	MintB          string   `json:"mintB"`
	TokenVaultA    string   `json:"tokenVaultA"`
	TokenVaultB    string   `json:"tokenVaultB"`
	TokenProgramA  string   `json:"tokenProgramA"`
	TokenProgramB  string   `json:"tokenProgramB"`
	TickArrays     []string `json:"tickArrays"`
}

// clmmSwapArgs is the borsh argument layout of the swap instruction.
type clmmSwapArgs struct {
	Amount               uint64
	OtherAmountThreshold uint64
	SqrtPriceLimit       bin.Uint128
	AmountSpecifiedIsIn  bool
	AToB                 bool
}

func (c *CLMMAdapter) IsAvailable(ctx context.Context, mint solana.PublicKey) bool {
	body, err := c.get(ctx, "/pools?mint="+mint.String())
	if err != nil {
		log.Debug().Err(err).Msg("[clmm] availability probe failed")
		return false
	}
	var pools []struct {
		Pool string `json:"pool"`
	}
	if err := sonic.Unmarshal(body, &pools); err != nil {
		return false
	}
	return len(pools) > 0
}

func (c *CLMMAdapter) GetQuote(ctx context.Context, req *QuoteRequest) (*domain.VenueQuote, error) {
	q := url.Values{}
	q.Set("inputMint", req.InputMint.String())
	q.Set("outputMint", req.OutputMint.String())
	q.Set("amount", req.InputAmount.String())
	q.Set("slippageBps", strconv.Itoa(int(req.SlippageBps)))

	body, err := c.get(ctx, "/quote?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var native clmmQuote
	if err := sonic.Unmarshal(body, &native); err != nil {
		return nil, fmt.Errorf("decode clmm quote: %w", err)
	}
	if len(native.TickArrays) != 3 {
		return nil, fmt.Errorf("clmm quote: expected 3 tick arrays, got %d", len(native.TickArrays))
	}

	outAmount, ok := new(big.Int).SetString(native.OutAmount, 10)
	if !ok {
		return nil, fmt.Errorf("clmm quote: bad outAmount %q", native.OutAmount)
	}
	feeAmount := big.NewInt(0)
	if v, ok := new(big.Int).SetString(native.FeeAmount, 10); ok {
		feeAmount = v
	}
	pool, err := solana.PublicKeyFromBase58(native.Pool)
	if err != nil {
		return nil, fmt.Errorf("clmm quote: bad pool address: %w", err)
	}

	return &domain.VenueQuote{
		Venue:          domain.VenueCLMM,
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		InputAmount:    new(big.Int).Set(req.InputAmount),
		OutputAmount:   outAmount,
		MinAmountOut:   minAmountOut(outAmount, req.SlippageBps),
		FeeAmount:      feeAmount,
		PriceImpactBps: native.PriceImpactBps,
		Market:         pool,
		Route:          []solana.PublicKey{req.InputMint, req.OutputMint},
		FetchedAt:      time.Now(),
		Meta:           &native,
	}, nil
}

func (c *CLMMAdapter) BuildInstructions(ctx context.Context, quote *domain.VenueQuote, trader solana.PublicKey) ([]solana.Instruction, error) {
	if err := validateQuote(quote, domain.VenueCLMM); err != nil {
		return nil, err
	}
	native, ok := quote.Meta.(*clmmQuote)
	if !ok {
		return nil, fmt.Errorf("quote is missing clmm payload")
	}

	keys, err := c.resolveKeys(native)
	if err != nil {
		return nil, err
	}
	oracle, err := oracleAddress(c.programID, keys.pool)
	if err != nil {
		return nil, err
	}

	inputMint, inputProgram := keys.mintA, keys.programA
	outputMint, outputProgram := keys.mintB, keys.programB
	if !native.AToB {
		inputMint, inputProgram, outputMint, outputProgram = outputMint, outputProgram, inputMint, inputProgram
	}
	traderIn, err := ataAddress(trader, inputMint, inputProgram)
	if err != nil {
		return nil, err
	}
	traderOut, err := ataAddress(trader, outputMint, outputProgram)
	if err != nil {
		return nil, err
	}
	createOut, err := newCreateATAInstruction(trader, trader, outputMint, outputProgram)
	if err != nil {
		return nil, err
	}

	data := bytes.NewBuffer(anchorDiscriminator("swap"))
	args := clmmSwapArgs{
		Amount:               quote.InputAmount.Uint64(),
		OtherAmountThreshold: quote.MinAmountOut.Uint64(),
		SqrtPriceLimit:       bin.Uint128{},
		AmountSpecifiedIsIn:  true,
		AToB:                 native.AToB,
	}
	if err := bin.NewBorshEncoder(data).Encode(&args); err != nil {
		return nil, fmt.Errorf("encode swap args: %w", err)
	}

	swap := solana.NewInstruction(c.programID, solana.AccountMetaSlice{
		{PublicKey: keys.programA},
		{PublicKey: trader, IsSigner: true, IsWritable: true},
		{PublicKey: keys.pool, IsWritable: true},
		{PublicKey: traderIn, IsWritable: true},
		{PublicKey: traderOut, IsWritable: true},
		{PublicKey: keys.vaultA, IsWritable: true},
		{PublicKey: keys.vaultB, IsWritable: true},
		{PublicKey: keys.tickArrays[0], IsWritable: true},
		{PublicKey: keys.tickArrays[1], IsWritable: true},
		{PublicKey: keys.tickArrays[2], IsWritable: true},
		{PublicKey: oracle, IsWritable: true},
	}, data.Bytes())

	return []solana.Instruction{createOut, swap}, nil
}

type clmmKeys struct {
	pool       solana.PublicKey
	mintA      solana.PublicKey
	mintB      solana.PublicKey
	vaultA     solana.PublicKey
	vaultB     solana.PublicKey
	programA   solana.PublicKey
	programB   solana.PublicKey
	tickArrays [3]solana.PublicKey
}

func (c *CLMMAdapter) resolveKeys(native *clmmQuote) (*clmmKeys, error) {
	var keys clmmKeys
	var err error
	fields := []struct {
		dst  *solana.PublicKey
		src  string
		name string
	}{
		{&keys.pool, native.Pool, "pool"},
		{&keys.mintA, native.MintA, "mintA"},
		{&keys.mintB, native.MintB, "mintB"},
		{&keys.vaultA, native.TokenVaultA, "tokenVaultA"},
		{&keys.vaultB, native.TokenVaultB, "tokenVaultB"},
		{&keys.programA, native.TokenProgramA, "tokenProgramA"},
		{&keys.programB, native.TokenProgramB, "tokenProgramB"},
		{&keys.tickArrays[0], native.TickArrays[0], "tickArray0"},
		{&keys.tickArrays[1], native.TickArrays[1], "tickArray1"},
		{&keys.tickArrays[2], native.TickArrays[2], "tickArray2"},
	}
	for _, f := range fields {
		*f.dst, err = solana.PublicKeyFromBase58(f.src)
		if err != nil {
			return nil, fmt.Errorf("clmm quote: bad %s %q: %w", f.name, f.src, err)
		}
	}
	return &keys, nil
}

func (c *CLMMAdapter) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.quoteURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, domain.NewTradeError(domain.ErrVenueUnavailable,
			fmt.Sprintf("clmm quote service unreachable: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read clmm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewTradeError(domain.ErrVenueUnavailable,
			fmt.Sprintf("clmm quote service returned %d: %s", resp.StatusCode, truncate(body, 200)))
	}
	return body, nil
}
