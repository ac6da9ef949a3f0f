package permit

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"automanKit/internal/automan"
	"automanKit/internal/chain"
	"automanKit/internal/chaininfo"
	"automanKit/internal/dex"
)

// Reason explains an ApprovalStatus.
type Reason string

const (
	ReasonIsOwner          Reason = "isOwner"
	ReasonApproved         Reason = "isApproved"
	ReasonApprovedForAll   Reason = "isApprovedForAll"
	ReasonValidPermit      Reason = "validPermit"
	ReasonMissingSignature Reason = "missingSignature"
	ReasonInvalidSignature Reason = "invalidSignature"
	ReasonPermitExpired    Reason = "permitExpired"
	ReasonNonexistent      Reason = "nonexistentPositionId"
)

// ApprovalStatus tells whether Automan may operate a position.
type ApprovalStatus struct {
	HasAuthority bool           `json:"has_authority"`
	Owner        common.Address `json:"owner"`
	Reason       Reason         `json:"reason"`
}

// CheckPositionApproval checks on-chain approvals first and falls back to p, which may be nil.
func CheckPositionApproval(ctx context.Context, caller chain.ContractCaller, info chaininfo.Info, tokenID *big.Int, p *automan.Permit, now time.Time) (ApprovalStatus, error) {
	position, err := dex.FetchBasicPositionInfo(ctx, caller, info.PositionManager, tokenID, nil)
	if errors.Is(err, dex.ErrPositionNotFound) {
		return ApprovalStatus{Reason: ReasonNonexistent}, nil
	}
	if err != nil {
		return ApprovalStatus{}, err
	}

	owner, err := dex.FetchPositionOwner(ctx, caller, info.PositionManager, tokenID, nil)
	if err != nil {
		return ApprovalStatus{}, err
	}
	if owner == info.Automan {
		return ApprovalStatus{HasAuthority: true, Owner: owner, Reason: ReasonIsOwner}, nil
	}

	var (
		approved       common.Address
		approvedForAll bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		approved, err = dex.FetchApproved(gctx, caller, info.PositionManager, tokenID, nil)
		return err
	})
	g.Go(func() error {
		var err error
		approvedForAll, err = dex.FetchApprovedForAll(gctx, caller, info.PositionManager, owner, info.Automan, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return ApprovalStatus{}, err
	}

	status := ApprovalStatus{Owner: owner}
	switch {
	case approved == info.Automan:
		status.HasAuthority, status.Reason = true, ReasonApproved
	case approvedForAll:
		status.HasAuthority, status.Reason = true, ReasonApprovedForAll
	case p == nil:
		status.Reason = ReasonMissingSignature
	case p.Deadline == nil || p.Deadline.Cmp(big.NewInt(now.Unix())) < 0:
		status.Reason = ReasonPermitExpired
	default:
		typed := TypedData(info, tokenID, info.Automan, position.Nonce, p.Deadline)
		if Verify(typed, *p, owner) {
			status.HasAuthority, status.Reason = true, ReasonValidPermit
		} else {
			status.Reason = ReasonInvalidSignature
		}
	}
	return status, nil
}
