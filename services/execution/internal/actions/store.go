package actions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Receipt struct {
	RequestID     string
	Action        string
	ActorEmail    string
	ActorRole     string
	EnvelopeTS    int64
	ReceivedAt    time.Time
	Data          []byte
	ResultOK      bool
	ResultCode    string
	RequestSHA256 string
}

type ReceiptStore interface {
	InsertReceipt(ctx context.Context, receipt Receipt) (inserted bool, err error)
}

// Rejection describes an envelope that was parsed but refused. Its fields
// come from an unverified body and are kept for audit only.
type Rejection struct {
	RequestID  string
	Action     string
	ActorEmail string
	Reason     string
	RemoteAddr string
	DataSHA256 string
	ReceivedAt time.Time
}

// RejectionRecorder is optional; stores that implement it get a row per
// refused envelope.
type RejectionRecorder interface {
	RecordRejection(ctx context.Context, rej Rejection) error
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) InsertReceipt(ctx context.Context, receipt Receipt) (bool, error) {
	var code any
	if receipt.ResultCode != "" {
		code = receipt.ResultCode
	}
	var receiptID string
	err := s.DB.QueryRow(ctx, `
INSERT INTO action_receipts(
  request_id,action,actor_email,actor_role,envelope_ts,received_at,data,result_ok,result_code,request_sha256
)
VALUES($1,$2,$3,$4,$5,$6,$7::jsonb,$8,$9,$10)
ON CONFLICT (request_id) DO NOTHING
RETURNING receipt_id::text
`, receipt.RequestID, receipt.Action, receipt.ActorEmail, receipt.ActorRole, receipt.EnvelopeTS, receipt.ReceivedAt.UTC(),
		string(receipt.Data), receipt.ResultOK, code, receipt.RequestSHA256).Scan(&receiptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) RecordRejection(ctx context.Context, rej Rejection) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO envelope_rejections(request_id,action,actor_email,reason,remote_addr,data_sha256,received_at)
VALUES($1,$2,$3,$4,$5,$6,$7)
`, rej.RequestID, rej.Action, rej.ActorEmail, rej.Reason, rej.RemoteAddr, rej.DataSHA256, rej.ReceivedAt.UTC())
	return err
}

type NopStore struct{}

func (NopStore) InsertReceipt(context.Context, Receipt) (bool, error) { return true, nil }
