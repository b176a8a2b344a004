package venue

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/solmesh/trade-engine/internal/common"
	"github.com/solmesh/trade-engine/internal/domain"
	"github.com/solmesh/trade-engine/internal/services/chain"
	"github.com/solmesh/trade-engine/internal/services/market"
)

// CPMMAdapter trades against a constant-product AMM whose pool state lives
// entirely on chain, so both quoting and building are local once the pool
// account is fetched. Pools are always token/WSOL.
type CPMMAdapter struct {
	programID    solana.PublicKey
	feeRecipient solana.PublicKey
	conn         chain.Connection
	registry     *market.Registry
}

func NewCPMMAdapter(programID, feeRecipient solana.PublicKey, conn chain.Connection, registry *market.Registry) *CPMMAdapter {
	return &CPMMAdapter{
		programID:    programID,
		feeRecipient: feeRecipient,
		conn:         conn,
		registry:     registry,
	}
}

func (c *CPMMAdapter) ID() domain.VenueID { return domain.VenueCPMM }

// cpmmPool mirrors the pool account layout after the 8-byte account
// discriminator.
type cpmmPool struct {
	BaseMint     solana.PublicKey
	QuoteMint    solana.PublicKey
	BaseVault    solana.PublicKey
	QuoteVault   solana.PublicKey
	BaseReserve  uint64
	QuoteReserve uint64
	FeeBps       uint16
	Tradable     bool
}

// cpmmQuoteMeta captures the pool snapshot a quote was priced against so
// build reuses the exact same state.
type cpmmQuoteMeta struct {
	PoolAddress solana.PublicKey
	Pool        cpmmPool
	BaseToQuote bool
}

type cpmmSwapArgs struct {
	AmountIn     uint64
	MinAmountOut uint64
	BaseToQuote  bool
}

func (c *CPMMAdapter) poolAddress(baseMint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(common.PoolSeed), baseMint.Bytes(), common.WrappedSOLMint.Bytes()},
		c.programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool for %s: %w", baseMint, err)
	}
	return addr, nil
}

func (c *CPMMAdapter) fetchPool(ctx context.Context, baseMint solana.PublicKey) (solana.PublicKey, *cpmmPool, error) {
	addr, err := c.poolAddress(baseMint)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	acc, err := c.conn.AccountInfo(ctx, addr)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("fetch pool %s: %w", addr, err)
	}
	if acc == nil || !acc.Owner.Equals(c.programID) {
		return solana.PublicKey{}, nil, domain.NewTradeError(domain.ErrVenueUnavailable,
			fmt.Sprintf("no cpmm pool for %s", baseMint))
	}
	if len(acc.Data) < 8 {
		return solana.PublicKey{}, nil, fmt.Errorf("pool %s: account too short", addr)
	}

	var pool cpmmPool
	if err := bin.NewBorshDecoder(acc.Data[8:]).Decode(&pool); err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("decode pool %s: %w", addr, err)
	}
	return addr, &pool, nil
}

func (c *CPMMAdapter) IsAvailable(ctx context.Context, mint solana.PublicKey) bool {
	if mint.Equals(common.WrappedSOLMint) {
		return false
	}
	_, pool, err := c.fetchPool(ctx, mint)
	if err != nil {
		log.Debug().Err(err).Str("mint", mint.String()).Msg("[cpmm] availability probe failed")
		return false
	}
	return pool.Tradable && pool.BaseReserve > 0 && pool.QuoteReserve > 0
}

func (c *CPMMAdapter) GetQuote(ctx context.Context, req *QuoteRequest) (*domain.VenueQuote, error) {
	baseToQuote := !req.InputMint.Equals(common.WrappedSOLMint)
	baseMint := req.InputMint
	if !baseToQuote {
		baseMint = req.OutputMint
	}

	addr, pool, err := c.fetchPool(ctx, baseMint)
	if err != nil {
		return nil, err
	}
	if !pool.Tradable {
		return nil, domain.NewTradeError(domain.ErrVenueUnavailable,
			fmt.Sprintf("pool %s is not tradable", addr))
	}

	reserveIn, reserveOut := pool.QuoteReserve, pool.BaseReserve
	if baseToQuote {
		reserveIn, reserveOut = pool.BaseReserve, pool.QuoteReserve
	}

	outAmount, feeAmount, err := constantProductOut(req.InputAmount, reserveIn, reserveOut, pool.FeeBps)
	if err != nil {
		return nil, err
	}

	return &domain.VenueQuote{
		Venue:          domain.VenueCPMM,
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		InputAmount:    new(big.Int).Set(req.InputAmount),
		OutputAmount:   outAmount,
		MinAmountOut:   minAmountOut(outAmount, req.SlippageBps),
		FeeAmount:      feeAmount,
		PriceImpactBps: priceImpactBps(req.InputAmount, outAmount, reserveIn, reserveOut),
		Market:         addr,
		Route:          []solana.PublicKey{req.InputMint, req.OutputMint},
		FetchedAt:      time.Now(),
		Meta: &cpmmQuoteMeta{
			PoolAddress: addr,
			Pool:        *pool,
			BaseToQuote: baseToQuote,
		},
	}, nil
}

func (c *CPMMAdapter) BuildInstructions(ctx context.Context, quote *domain.VenueQuote, trader solana.PublicKey) ([]solana.Instruction, error) {
	if err := validateQuote(quote, domain.VenueCPMM); err != nil {
		return nil, err
	}
	meta, ok := quote.Meta.(*cpmmQuoteMeta)
	if !ok {
		return nil, fmt.Errorf("quote is missing cpmm payload")
	}

	baseInfo, err := c.registry.Resolve(ctx, meta.Pool.BaseMint)
	if err != nil {
		return nil, err
	}

	inputMint, inputProgram := meta.Pool.BaseMint, baseInfo.TokenProgram
	outputMint, outputProgram := meta.Pool.QuoteMint, common.TokenProgramID
	if !meta.BaseToQuote {
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
	feeATA, err := ataAddress(c.feeRecipient, meta.Pool.QuoteMint, common.TokenProgramID)
	if err != nil {
		return nil, err
	}
	createOut, err := newCreateATAInstruction(trader, trader, outputMint, outputProgram)
	if err != nil {
		return nil, err
	}

	data := bytes.NewBuffer(anchorDiscriminator("swap_exact_in"))
	args := cpmmSwapArgs{
		AmountIn:     quote.InputAmount.Uint64(),
		MinAmountOut: quote.MinAmountOut.Uint64(),
		BaseToQuote:  meta.BaseToQuote,
	}
	if err := bin.NewBorshEncoder(data).Encode(&args); err != nil {
		return nil, fmt.Errorf("encode swap args: %w", err)
	}

	swap := solana.NewInstruction(c.programID, solana.AccountMetaSlice{
		{PublicKey: meta.PoolAddress, IsWritable: true},
		{PublicKey: trader, IsSigner: true, IsWritable: true},
		{PublicKey: traderIn, IsWritable: true},
		{PublicKey: traderOut, IsWritable: true},
		{PublicKey: meta.Pool.BaseVault, IsWritable: true},
		{PublicKey: meta.Pool.QuoteVault, IsWritable: true},
		{PublicKey: feeATA, IsWritable: true},
		{PublicKey: baseInfo.TokenProgram},
		{PublicKey: common.TokenProgramID},
		{PublicKey: common.SystemProgramID},
	}, data.Bytes())

	return []solana.Instruction{createOut, swap}, nil
}

// constantProductOut prices an exact-in swap against x*y=k reserves with
// the venue fee taken from the input side.
func constantProductOut(amountIn *big.Int, reserveIn, reserveOut uint64, feeBps uint16) (out, fee *big.Int, err error) {
	if amountIn.Sign() <= 0 {
		return nil, nil, fmt.Errorf("input amount must be positive")
	}
	in, overflow := uint256.FromBig(amountIn)
	if overflow || !in.IsUint64() {
		return nil, nil, fmt.Errorf("input amount exceeds u64")
	}

	feeU := new(uint256.Int).Mul(in, uint256.NewInt(uint64(feeBps)))
	feeU.Div(feeU, uint256.NewInt(bpsDenominator))
	inAfterFee := new(uint256.Int).Sub(in, feeU)

	// out = reserveOut * inAfterFee / (reserveIn + inAfterFee)
	num := new(uint256.Int).Mul(uint256.NewInt(reserveOut), inAfterFee)
	den := new(uint256.Int).AddUint64(inAfterFee, reserveIn)
	if den.IsZero() {
		return nil, nil, fmt.Errorf("pool has no liquidity")
	}
	outU := num.Div(num, den)
	if outU.IsZero() {
		return nil, nil, fmt.Errorf("input too small for pool")
	}
	return outU.ToBig(), feeU.ToBig(), nil
}
