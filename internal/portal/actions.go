package portal

import (
	"context"
	"errors"
	"strings"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/envelope"
)

const (
	ActionPing              = "PING"
	ActionPublishCurriculum = "PUBLISH_CURRICULUM"
	ActionAwardXP           = "AWARD_XP"
	ActionDrawRaffle        = "DRAW_RAFFLE"
	ActionEvaluateQuest     = "EVALUATE_QUEST"
)

type PublishCurriculumRequest struct {
	Notes string `json:"notes,omitempty"`
}

type AwardXPRequest struct {
	StudentEmail string `json:"studentEmail"`
	Amount       int    `json:"amount"`
	Reason       string `json:"reason,omitempty"`
}

type DrawRaffleRequest struct {
	RaffleID string `json:"raffleId"`
}

type EvaluateQuestRequest struct {
	QuestID      string `json:"questId"`
	StudentEmail string `json:"studentEmail"`
}

// Results are left as generic maps; their shape belongs to the executor.
type Result = map[string]any

func (g *Gateway) Ping(ctx context.Context, actor envelope.Actor) (*envelope.Response[Result], error) {
	return Do[Result](ctx, g, actor, ActionPing, nil)
}

func (g *Gateway) PublishCurriculum(ctx context.Context, actor envelope.Actor, req PublishCurriculumRequest) (*envelope.Response[Result], error) {
	return Do[Result](ctx, g, actor, ActionPublishCurriculum, req)
}

func (g *Gateway) AwardXP(ctx context.Context, actor envelope.Actor, req AwardXPRequest) (*envelope.Response[Result], error) {
	if strings.TrimSpace(req.StudentEmail) == "" {
		return nil, errors.New("student email is required")
	}
	return Do[Result](ctx, g, actor, ActionAwardXP, req)
}

func (g *Gateway) DrawRaffle(ctx context.Context, actor envelope.Actor, req DrawRaffleRequest) (*envelope.Response[Result], error) {
	if strings.TrimSpace(req.RaffleID) == "" {
		return nil, errors.New("raffle id is required")
	}
	return Do[Result](ctx, g, actor, ActionDrawRaffle, req)
}

func (g *Gateway) EvaluateQuest(ctx context.Context, actor envelope.Actor, req EvaluateQuestRequest) (*envelope.Response[Result], error) {
	if strings.TrimSpace(req.QuestID) == "" {
		return nil, errors.New("quest id is required")
	}
	return Do[Result](ctx, g, actor, ActionEvaluateQuest, req)
}
