package settlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plateora/plateora-backend/internal/listings"
	"github.com/plateora/plateora-backend/pkg/db/models"
	"github.com/plateora/plateora-backend/pkg/enums"
	pkgerrors "github.com/plateora/plateora-backend/pkg/errors"
	"github.com/plateora/plateora-backend/pkg/logger"
	"github.com/plateora/plateora-backend/pkg/metrics"
	"github.com/plateora/plateora-backend/pkg/square"
)

// chargeKeyPrefix derives the gateway idempotency key from the listing id
// alone, so every retry of the same settlement resolves to the same charge.
const chargeKeyPrefix = "winner-charge-"

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BidHistory reads the immutable bid trail for winner selection.
// Implemented by the bids repository.
type BidHistory interface {
	ListForListing(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error)
}

// Gateway is the payment surface settlement needs. Implemented by the
// Square client.
type Gateway interface {
	FindOrCreateCustomer(ctx context.Context, email string) (string, error)
	ListEnabledCardIDs(ctx context.Context, customerID string) ([]string, error)
	ChargeStoredCard(ctx context.Context, params square.ChargeParams) (*square.ChargeResult, error)
}

// ServiceParams groups dependencies for the settlement service.
type ServiceParams struct {
	Logger       *logger.Logger
	DB           TxRunner
	Listings     listings.Repository
	Bids         BidHistory
	Transactions Repository
	Gateway      Gateway
	Notifier     Notifier
	Metrics      *metrics.SettlementMetrics

	Currency         string
	TransferFeePence int64
	ListingFeePence  int64
}

// Service settles completed listings: winner selection, fee maths, the one
// gateway charge, and the transaction record.
type Service struct {
	logg         *logger.Logger
	db           TxRunner
	listings     listings.Repository
	bids         BidHistory
	transactions Repository
	gateway      Gateway
	notifier     Notifier
	metrics      *metrics.SettlementMetrics

	currency    string
	transferFee int64
	listingFee  int64
}

// NewService builds a settlement service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Listings == nil {
		return nil, errors.New("listings repo is required")
	}
	if params.Bids == nil {
		return nil, errors.New("bid history is required")
	}
	if params.Transactions == nil {
		return nil, errors.New("transactions repo is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if params.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if params.Currency == "" {
		params.Currency = "GBP"
	}
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		listings:     params.Listings,
		bids:         params.Bids,
		transactions: params.Transactions,
		gateway:      params.Gateway,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
		currency:     params.Currency,
		transferFee:  params.TransferFeePence,
		listingFee:   params.ListingFeePence,
	}, nil
}

// Settle runs the ordered settlement steps for one completed listing and
// returns the outcome. A settlement that fails at the gateway is still a
// successful call: the failure is the outcome, the listing stays completed,
// and the next pass or an operator can retry behind the same idempotency
// key. Only infrastructure errors propagate as errors.
func (s *Service) Settle(ctx context.Context, listingID uuid.UUID) (*Outcome, error) {
	ctx = s.logg.WithListingID(ctx, listingID.String())

	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.Status == enums.ListingStatusSold || listing.Status == enums.ListingStatusNotSold {
		return s.finish(ctx, skipped(listingID, enums.SettlementReasonAlreadySettled)), nil
	}
	if listing.Status != enums.ListingStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed listings can settle")
	}
	if existing, err := s.transactions.FindByListingID(ctx, listingID); err == nil && existing != nil {
		// Belt and braces: a transaction row without the sold status means a
		// prior run died between the two writes. Repair the status and skip.
		if _, err := s.listings.MarkSold(ctx, listingID); err != nil {
			return nil, err
		}
		return s.finish(ctx, skipped(listingID, enums.SettlementReasonAlreadySettled)), nil
	} else if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		return nil, err
	}

	if listing.CurrentBidPence == nil || *listing.CurrentBidPence <= 0 {
		if _, err := s.listings.MarkNotSold(ctx, listingID); err != nil {
			return nil, err
		}
		return s.finish(ctx, skipped(listingID, enums.SettlementReasonNoBids)), nil
	}
	if !listing.ReserveMet() {
		if _, err := s.listings.MarkNotSold(ctx, listingID); err != nil {
			return nil, err
		}
		return s.finish(ctx, skipped(listingID, enums.SettlementReasonReserveNotMet)), nil
	}

	winner, err := s.winningBid(ctx, listing)
	if err != nil {
		return nil, err
	}

	customerID, err := s.gateway.FindOrCreateCustomer(ctx, winner.BidderEmail)
	if err != nil {
		return s.finish(ctx, failed(listingID, err)), nil
	}
	cards, err := s.gateway.ListEnabledCardIDs(ctx, customerID)
	if err != nil {
		return s.finish(ctx, failed(listingID, err)), nil
	}
	if len(cards) == 0 {
		return s.finish(ctx, skipped(listingID, enums.SettlementReasonNoPaymentMethod)), nil
	}

	fees := ComputeFees(*listing.CurrentBidPence, s.transferFee, s.listingFee)
	result, err := s.gateway.ChargeStoredCard(ctx, square.ChargeParams{
		CustomerID:     customerID,
		CardID:         cards[0],
		AmountPence:    fees.TotalChargePence,
		Currency:       s.currency,
		IdempotencyKey: chargeKeyPrefix + listingID.String(),
		Note:           "Auction settlement for " + listing.Registration,
		ReferenceID:    listingID.String(),
	})
	if err != nil {
		outcome := failed(listingID, err)
		s.logg.Warn(s.logg.WithField(ctx, "reason", string(outcome.Reason)), "winner charge failed")
		return s.finish(ctx, outcome), nil
	}

	record := &models.Transaction{
		ID:                 uuid.New(),
		ListingID:          listingID,
		BuyerEmail:         winner.BidderEmail,
		SellerID:           listing.SellerID,
		WinningAmountPence: fees.WinningAmountPence,
		TransferFeePence:   fees.TransferFeePence,
		CommissionRate:     fees.CommissionRate.String(),
		CommissionPence:    fees.CommissionPence,
		SellerPayoutPence:  fees.SellerPayoutPence,
		Currency:           s.currency,
		ChargeReference:    result.Reference,
		ChargeStatus:       enums.ChargeStatusSucceeded,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.transactions.WithTx(tx).Create(ctx, record); err != nil {
			return err
		}
		ok, err := s.listings.WithTx(tx).MarkSold(ctx, listingID)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing left completed state during settlement")
		}
		return nil
	})
	if err != nil {
		// The charge went through but persistence did not. The next retry
		// hits the transaction-row guard or the gateway key, so no double
		// charge is possible; surface this run as an error for the batch.
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "charge succeeded but settlement write failed")
	}

	outcome := &Outcome{
		ListingID:       listingID,
		Result:          enums.SettlementOutcomeCharged,
		ChargedPence:    fees.TotalChargePence,
		ChargeReference: result.Reference,
	}
	s.logg.Info(s.logg.WithField(ctx, "charged_pence", fees.TotalChargePence), "listing settled and sold")
	return s.finish(ctx, outcome), nil
}

// winningBid selects the winner from the bid trail. Under the strictly
// increasing acceptance rule the highest amount and the latest placement are
// the same bid, so the ordered read's first row is authoritative either way.
func (s *Service) winningBid(ctx context.Context, listing *models.Listing) (*models.Bid, error) {
	rows, err := s.bids.ListForListing(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing has a current bid but no bid records")
	}
	winner := rows[0]
	if listing.CurrentBidPence != nil && winner.AmountPence != *listing.CurrentBidPence {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bid trail disagrees with listing current bid")
	}
	return &winner, nil
}

func (s *Service) finish(ctx context.Context, outcome *Outcome) *Outcome {
	if s.metrics != nil {
		s.metrics.IncOutcome(string(outcome.Result), string(outcome.Reason))
		if outcome.Charged() {
			s.metrics.AddChargedPence(outcome.ChargedPence)
		}
	}
	if err := s.notifier.NotifySettled(ctx, outcome); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "outcome", string(outcome.Result)), "settlement notification failed")
	}
	return outcome
}

func skipped(listingID uuid.UUID, reason enums.SettlementReason) *Outcome {
	return &Outcome{ListingID: listingID, Result: enums.SettlementOutcomeSkipped, Reason: reason}
}

func failed(listingID uuid.UUID, err error) *Outcome {
	return &Outcome{
		ListingID: listingID,
		Result:    enums.SettlementOutcomeFailed,
		Reason:    enums.SettlementReason(square.ClassifyFailure(err)),
	}
}
