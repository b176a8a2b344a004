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
)

// curveFeeBps is the bonding-curve program's flat trade fee.
const curveFeeBps = 100

// BondingCurveAdapter trades against a launchpad bonding curve. It is the
// lowest-priority venue and the fallback for freshly launched tokens that
// have not graduated to an AMM pool yet. A completed curve has migrated
// its liquidity away and no longer trades.
type BondingCurveAdapter struct {
	programID    solana.PublicKey
	feeRecipient solana.PublicKey
	conn         chain.Connection
}

func NewBondingCurveAdapter(programID, feeRecipient solana.PublicKey, conn chain.Connection) *BondingCurveAdapter {
	return &BondingCurveAdapter{
		programID:    programID,
		feeRecipient: feeRecipient,
		conn:         conn,
	}
}

func (b *BondingCurveAdapter) ID() domain.VenueID { return domain.VenueBondingCurve }

// curveState mirrors the bonding-curve account layout after the 8-byte
// account discriminator.
type curveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              solana.PublicKey
}

// curveQuoteMeta captures the curve snapshot a quote was priced against.
type curveQuoteMeta struct {
	CurveAddress solana.PublicKey
	State        curveState
	Mint         solana.PublicKey
	Buy          bool
}

func (b *BondingCurveAdapter) fetchCurve(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, *curveState, error) {
	addr, err := curveAddress(b.programID, mint)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	acc, err := b.conn.AccountInfo(ctx, addr)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("fetch curve %s: %w", addr, err)
	}
	if acc == nil || !acc.Owner.Equals(b.programID) {
		return solana.PublicKey{}, nil, domain.NewTradeError(domain.ErrVenueUnavailable,
			fmt.Sprintf("no bonding curve for %s", mint))
	}
	if len(acc.Data) < 8 {
		return solana.PublicKey{}, nil, fmt.Errorf("curve %s: account too short", addr)
	}

	var state curveState
	if err := bin.NewBorshDecoder(acc.Data[8:]).Decode(&state); err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("decode curve %s: %w", addr, err)
	}
	return addr, &state, nil
}

func (b *BondingCurveAdapter) IsAvailable(ctx context.Context, mint solana.PublicKey) bool {
	if mint.Equals(common.WrappedSOLMint) {
		return false
	}
	_, state, err := b.fetchCurve(ctx, mint)
	if err != nil {
		log.Debug().Err(err).Str("mint", mint.String()).Msg("[curve] availability probe failed")
		return false
	}
	return !state.Complete
}

func (b *BondingCurveAdapter) GetQuote(ctx context.Context, req *QuoteRequest) (*domain.VenueQuote, error) {
	buy := req.InputMint.Equals(common.WrappedSOLMint)
	mint := req.InputMint
	if buy {
		mint = req.OutputMint
	}

	addr, state, err := b.fetchCurve(ctx, mint)
	if err != nil {
		return nil, err
	}
	if state.Complete {
		return nil, domain.NewTradeError(domain.ErrVenueUnavailable,
			fmt.Sprintf("curve for %s has graduated", mint))
	}

	var outAmount, feeAmount *big.Int
	if buy {
		outAmount, feeAmount, err = curveBuyOut(req.InputAmount, state)
	} else {
		outAmount, feeAmount, err = curveSellOut(req.InputAmount, state)
	}
	if err != nil {
		return nil, err
	}

	reserveIn, reserveOut := state.VirtualSolReserves, state.VirtualTokenReserves
	if !buy {
		reserveIn, reserveOut = reserveOut, reserveIn
	}

	return &domain.VenueQuote{
		Venue:          domain.VenueBondingCurve,
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
		Meta: &curveQuoteMeta{
			CurveAddress: addr,
			State:        *state,
			Mint:         mint,
			Buy:          buy,
		},
	}, nil
}

func (b *BondingCurveAdapter) BuildInstructions(ctx context.Context, quote *domain.VenueQuote, trader solana.PublicKey) ([]solana.Instruction, error) {
	if err := validateQuote(quote, domain.VenueBondingCurve); err != nil {
		return nil, err
	}
	meta, ok := quote.Meta.(*curveQuoteMeta)
	if !ok {
		return nil, fmt.Errorf("quote is missing curve payload")
	}

	global, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(common.GlobalSeed)}, b.programID)
	if err != nil {
		return nil, fmt.Errorf("derive global: %w", err)
	}
	eventAuthority, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(common.EventAuthoritySeed)}, b.programID)
	if err != nil {
		return nil, fmt.Errorf("derive event authority: %w", err)
	}
	creatorVault, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(common.CreatorVaultSeed), meta.State.Creator.Bytes()}, b.programID)
	if err != nil {
		return nil, fmt.Errorf("derive creator vault: %w", err)
	}
	curveATA, err := ataAddress(meta.CurveAddress, meta.Mint, common.TokenProgramID)
	if err != nil {
		return nil, err
	}
	traderATA, err := ataAddress(trader, meta.Mint, common.TokenProgramID)
	if err != nil {
		return nil, err
	}

	// Curve trades settle SOL natively, so only the token ATA may need
	// creating, and only on the buy side.
	var instructions []solana.Instruction
	if meta.Buy {
		createATA, err := newCreateATAInstruction(trader, trader, meta.Mint, common.TokenProgramID)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, createATA)
	}

	var data *bytes.Buffer
	if meta.Buy {
		data = bytes.NewBuffer(anchorDiscriminator("buy"))
		args := struct {
			Amount     uint64
			MaxSolCost uint64
		}{
			Amount:     quote.MinAmountOut.Uint64(),
			MaxSolCost: quote.InputAmount.Uint64(),
		}
		if err := bin.NewBorshEncoder(data).Encode(&args); err != nil {
			return nil, fmt.Errorf("encode buy args: %w", err)
		}
	} else {
		data = bytes.NewBuffer(anchorDiscriminator("sell"))
		args := struct {
			Amount       uint64
			MinSolOutput uint64
		}{
			Amount:       quote.InputAmount.Uint64(),
			MinSolOutput: quote.MinAmountOut.Uint64(),
		}
		if err := bin.NewBorshEncoder(data).Encode(&args); err != nil {
			return nil, fmt.Errorf("encode sell args: %w", err)
		}
	}

	swap := solana.NewInstruction(b.programID, solana.AccountMetaSlice{
		{PublicKey: global},
		{PublicKey: b.feeRecipient, IsWritable: true},
		{PublicKey: meta.Mint},
		{PublicKey: meta.CurveAddress, IsWritable: true},
		{PublicKey: curveATA, IsWritable: true},
		{PublicKey: traderATA, IsWritable: true},
		{PublicKey: trader, IsSigner: true, IsWritable: true},
		{PublicKey: common.SystemProgramID},
		{PublicKey: common.TokenProgramID},
		{PublicKey: creatorVault, IsWritable: true},
		{PublicKey: eventAuthority},
		{PublicKey: b.programID},
	}, data.Bytes())

	return append(instructions, swap), nil
}

// curveBuyOut prices a SOL-in token-out trade on virtual reserves with the
// fee taken from the SOL side.
func curveBuyOut(solIn *big.Int, state *curveState) (out, fee *big.Int, err error) {
	in, err := curveInput(solIn)
	if err != nil {
		return nil, nil, err
	}

	feeU := new(uint256.Int).Mul(in, uint256.NewInt(curveFeeBps))
	feeU.Div(feeU, uint256.NewInt(bpsDenominator))
	inAfterFee := new(uint256.Int).Sub(in, feeU)

	// tokensOut = vTok - vTok*vSol/(vSol + solIn)
	k := new(uint256.Int).Mul(
		uint256.NewInt(state.VirtualTokenReserves),
		uint256.NewInt(state.VirtualSolReserves))
	newSol := new(uint256.Int).AddUint64(inAfterFee, state.VirtualSolReserves)
	if newSol.IsZero() {
		return nil, nil, fmt.Errorf("curve has no liquidity")
	}
	newTok := k.Div(k, newSol)
	outU := new(uint256.Int).Sub(uint256.NewInt(state.VirtualTokenReserves), newTok)

	// The curve cannot sell more than its remaining real inventory.
	if outU.CmpUint64(state.RealTokenReserves) > 0 {
		outU.SetUint64(state.RealTokenReserves)
	}
	if outU.IsZero() {
		return nil, nil, fmt.Errorf("input too small for curve")
	}
	return outU.ToBig(), feeU.ToBig(), nil
}

// curveSellOut prices a token-in SOL-out trade, fee taken from the SOL
// proceeds.
func curveSellOut(tokenIn *big.Int, state *curveState) (out, fee *big.Int, err error) {
	in, err := curveInput(tokenIn)
	if err != nil {
		return nil, nil, err
	}

	// solOut = vSol - vSol*vTok/(vTok + tokenIn)
	k := new(uint256.Int).Mul(
		uint256.NewInt(state.VirtualTokenReserves),
		uint256.NewInt(state.VirtualSolReserves))
	newTok := new(uint256.Int).AddUint64(in, state.VirtualTokenReserves)
	if newTok.IsZero() {
		return nil, nil, fmt.Errorf("curve has no liquidity")
	}
	newSol := k.Div(k, newTok)
	gross := new(uint256.Int).Sub(uint256.NewInt(state.VirtualSolReserves), newSol)

	feeU := new(uint256.Int).Mul(gross, uint256.NewInt(curveFeeBps))
	feeU.Div(feeU, uint256.NewInt(bpsDenominator))
	outU := gross.Sub(gross, feeU)
	if outU.IsZero() {
		return nil, nil, fmt.Errorf("input too small for curve")
	}
	return outU.ToBig(), feeU.ToBig(), nil
}

func curveInput(amount *big.Int) (*uint256.Int, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("input amount must be positive")
	}
	in, overflow := uint256.FromBig(amount)
	if overflow || !in.IsUint64() {
		return nil, fmt.Errorf("input amount exceeds u64")
	}
	return in, nil
}
