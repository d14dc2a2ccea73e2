package actions

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/canonhash"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/envelope"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/httpx"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/services/execution/internal/metrics"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/services/execution/internal/replay"
)

const maxEnvelopeBytes = 1 << 20 // 1MB

type Options struct {
	Verifier *envelope.Verifier
	Guard    replay.Guard
	Store    ReceiptStore
	Registry *Registry
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
	MaxSkew  time.Duration
	Now      func() time.Time
}

type Handler struct {
	verifier *envelope.Verifier
	guard    replay.Guard
	store    ReceiptStore
	registry *Registry
	metrics  *metrics.Metrics
	log      zerolog.Logger
	maxSkew  time.Duration
	now      func() time.Time
}

func NewHandler(opts Options) *Handler {
	h := &Handler{
		verifier: opts.Verifier,
		guard:    opts.Guard,
		store:    opts.Store,
		registry: opts.Registry,
		metrics:  opts.Metrics,
		log:      opts.Log,
		maxSkew:  opts.MaxSkew,
		now:      opts.Now,
	}
	if h.guard == nil {
		h.guard = replay.NewMemoryGuard()
	}
	if h.store == nil {
		h.store = NopStore{}
	}
	if h.registry == nil {
		h.registry = NewRegistry()
	}
	if h.maxSkew <= 0 {
		h.maxSkew = 5 * time.Minute
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *Handler) Mount(r chi.Router) {
	r.Post("/actions", h.HandleAction)
}

func (h *Handler) HandleAction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEnvelopeBytes)
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.reject(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "envelope exceeds 1MB limit", "too_large")
			return
		}
		h.reject(w, http.StatusBadRequest, "BAD_BODY", err.Error(), "bad_body")
		return
	}

	var env envelope.ActionEnvelope
	if err := httpx.DecodeStrict(rawBody, &env); err != nil {
		h.reject(w, http.StatusBadRequest, "BAD_ENVELOPE", err.Error(), "bad_envelope")
		return
	}
	if strings.TrimSpace(env.Action) == "" || strings.TrimSpace(env.RequestID) == "" || strings.TrimSpace(env.Signature) == "" {
		h.reject(w, http.StatusBadRequest, "BAD_ENVELOPE", "action, requestId and signature are required", "bad_envelope")
		return
	}

	log := h.log.With().Str("action", env.Action).Str("request_id", env.RequestID).Logger()

	if err := h.verifier.Verify(env); err != nil {
		log.Warn().Err(err).Msg("envelope signature rejected")
		h.audit(r, env, "bad_signature")
		h.reject(w, http.StatusUnauthorized, "BAD_SIGNATURE", "signature verification failed", "bad_signature")
		return
	}
	receivedAt := h.now()
	if !envelope.Fresh(env.TS, receivedAt, h.maxSkew) {
		log.Warn().Int64("ts", env.TS).Msg("envelope timestamp outside skew window")
		h.audit(r, env, "stale")
		h.reject(w, http.StatusUnauthorized, "STALE_TIMESTAMP", "timestamp outside accepted window", "stale")
		return
	}
	first, err := h.guard.Claim(r.Context(), env.RequestID, 2*h.maxSkew)
	if err != nil {
		log.Error().Err(err).Msg("replay guard unavailable")
		h.reject(w, http.StatusServiceUnavailable, "REPLAY_GUARD_UNAVAILABLE", "cannot check request id", "guard_error")
		return
	}
	if !first {
		log.Warn().Msg("replayed request id")
		h.audit(r, env, "replayed")
		h.reject(w, http.StatusConflict, "REPLAYED_REQUEST", "request id already used", "replayed")
		return
	}
	data, err := envelope.EncodeData(env.Data)
	if err != nil {
		log.Warn().Err(err).Msg("envelope data is not valid JSON")
		h.reject(w, http.StatusBadRequest, "BAD_ENVELOPE", "data is not valid JSON", "bad_envelope")
		return
	}
	h.metrics.Envelope("verified")
	actor := envelope.Actor{Email: env.ActorEmail, Role: env.ActorRole}

	fn, ok := h.registry.Lookup(env.Action)
	metricAction := env.Action
	var res Result
	if !ok {
		metricAction = metrics.UnregisteredAction
		res = Result{OK: false, Code: "UNKNOWN_ACTION", Message: "no handler registered for " + env.Action}
	} else {
		res, err = fn(r.Context(), actor, data)
		if err != nil {
			log.Error().Err(err).Msg("action failed")
			h.metrics.Action(metricAction, false)
			httpx.WriteError(w, http.StatusInternalServerError, "EXECUTION_FAILED", "action could not be executed")
			return
		}
	}
	h.metrics.Action(metricAction, res.OK)

	if _, err := h.store.InsertReceipt(r.Context(), Receipt{
		RequestID:     env.RequestID,
		Action:        env.Action,
		ActorEmail:    env.ActorEmail,
		ActorRole:     env.ActorRole,
		EnvelopeTS:    env.TS,
		ReceivedAt:    receivedAt,
		Data:          data,
		ResultOK:      res.OK,
		ResultCode:    res.Code,
		RequestSHA256: canonhash.SumBytes(rawBody),
	}); err != nil {
		log.Error().Err(err).Msg("receipt not recorded")
	}

	log.Info().Bool("ok", res.OK).Str("code", res.Code).Msg("action executed")
	httpx.WriteEnvelope(w, http.StatusOK, res.OK, res.Code, res.Message, res.Data)
}

func (h *Handler) reject(w http.ResponseWriter, status int, code, message, outcome string) {
	h.metrics.Envelope(outcome)
	httpx.WriteError(w, status, code, message)
}

// audit records a refused envelope when the store supports it. Failures
// are logged and never change the response.
func (h *Handler) audit(r *http.Request, env envelope.ActionEnvelope, reason string) {
	rec, ok := h.store.(RejectionRecorder)
	if !ok {
		return
	}
	dataSHA, _, err := canonhash.SumData(env.Data)
	if err != nil {
		dataSHA = ""
	}
	if err := rec.RecordRejection(r.Context(), Rejection{
		RequestID:  env.RequestID,
		Action:     env.Action,
		ActorEmail: env.ActorEmail,
		Reason:     reason,
		RemoteAddr: r.RemoteAddr,
		DataSHA256: dataSHA,
		ReceivedAt: h.now(),
	}); err != nil {
		h.log.Error().Err(err).Str("request_id", env.RequestID).Msg("rejection not recorded")
	}
}
