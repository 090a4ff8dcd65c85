package domain

import (
	"errors"
	"fmt"
)

// Category errors. Every specific error below wraps exactly one of these so
// that callers can match either the precise failure or its category with
// errors.Is.
var (
	// ErrInvalidArgs is the category for malformed or out-of-range input.
	ErrInvalidArgs = errors.New("invalid arguments")
	// ErrUnauthorized is the category for operations attempted by the wrong
	// caller or role.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidState is the category for operations that are not allowed for
	// the current trade status or timing.
	ErrInvalidState = errors.New("invalid state")
	// ErrDoubleAction is the category for repeating a once-only action, like
	// funding or confirming twice with the same party.
	ErrDoubleAction = errors.New("action already performed")
	// ErrInsufficientEscrow signals that the custody balance cannot cover a
	// payout. It is a consistency fault of the escrow accounting, never a
	// user error.
	ErrInsufficientEscrow = errors.New("insufficient escrow balance")
	// ErrBadSignature is the category for order signatures that do not
	// recover to the claimed maker.
	ErrBadSignature = errors.New("bad signature")
	// ErrReplay is the category for exhausted nonces or fill quantities.
	ErrReplay = errors.New("replay")
	// ErrReentrantCall is returned when a call re-enters a fund-moving
	// operation while another one is still in flight.
	ErrReentrantCall = errors.New("reentrant call")
)

var (
	ErrTradeNotFound    = errors.New("trade not found")
	ErrSettingsNotFound = errors.New("settings not initialized")

	ErrMissingParty         = fmt.Errorf("%w: missing party identifier", ErrInvalidArgs)
	ErrSameParty            = fmt.Errorf("%w: maker and taker must differ", ErrInvalidArgs)
	ErrMissingAsset         = fmt.Errorf("%w: missing asset", ErrInvalidArgs)
	ErrNonPositiveAmounts   = fmt.Errorf("%w: price and deposit must be positive", ErrInvalidArgs)
	ErrMissingAgreementHash = fmt.Errorf("%w: missing agreement hash", ErrInvalidArgs)
	ErrInvalidFundingWindow = fmt.Errorf("%w: funding window must be positive", ErrInvalidArgs)
	ErrInvalidDirection     = fmt.Errorf("%w: unknown trade direction", ErrInvalidArgs)
	ErrNoRefundDue          = fmt.Errorf("%w: nothing to refund", ErrInvalidArgs)
	ErrWinnerNotParty       = fmt.Errorf("%w: winner must be maker or taker", ErrInvalidArgs)
	ErrInvalidFillAmount    = fmt.Errorf("%w: invalid fill amount", ErrInvalidArgs)
	ErrFillBelowMinimum     = fmt.Errorf("%w: fill amount below order minimum", ErrInvalidArgs)
	ErrFillAboveRemaining   = fmt.Errorf("%w: fill amount exceeds remaining quantity", ErrInvalidArgs)
	ErrMissingVault         = fmt.Errorf("%w: missing vault address", ErrInvalidArgs)
	ErrFeeAboveCeiling      = fmt.Errorf("%w: fee above allowed ceiling", ErrInvalidArgs)

	ErrNotTradeParty   = fmt.Errorf("%w: not a trade participant", ErrUnauthorized)
	ErrNotDisputer     = fmt.Errorf("%w: only the disputer can cancel the dispute", ErrUnauthorized)
	ErrNotAdmin        = fmt.Errorf("%w: admin only", ErrUnauthorized)
	ErrTakerNotAllowed = fmt.Errorf("%w: taker not allowed by this order", ErrUnauthorized)
	ErrNotTradeCreator = fmt.Errorf("%w: only the trade creator can fund at creation", ErrUnauthorized)

	ErrTradeNotOpen          = fmt.Errorf("%w: trade is not open", ErrInvalidState)
	ErrTradeNotFunded        = fmt.Errorf("%w: trade is not funded", ErrInvalidState)
	ErrTradeNotDisputed      = fmt.Errorf("%w: trade is not disputed", ErrInvalidState)
	ErrTradeNotCancelled     = fmt.Errorf("%w: trade is not cancelled", ErrInvalidState)
	ErrFundingDeadlinePassed = fmt.Errorf("%w: funding deadline has passed", ErrInvalidState)
	ErrDeadlineNotReached    = fmt.Errorf("%w: funding deadline not reached", ErrInvalidState)
	ErrTradeFullyFunded      = fmt.Errorf("%w: trade is fully funded", ErrInvalidState)
	ErrOrderExpired          = fmt.Errorf("%w: order has expired", ErrInvalidState)
	ErrInvalidTransition     = fmt.Errorf("%w: illegal status transition", ErrInvalidState)

	ErrAlreadyFunded    = fmt.Errorf("%w: party has already funded", ErrDoubleAction)
	ErrAlreadyConfirmed = fmt.Errorf("%w: party has already confirmed", ErrDoubleAction)

	ErrNonceConsumed    = fmt.Errorf("%w: nonce already consumed", ErrReplay)
	ErrOrderFullyFilled = fmt.Errorf("%w: order fully filled", ErrReplay)

	ErrSignerNotMaker = fmt.Errorf("%w: signer is not the order maker", ErrBadSignature)
)
