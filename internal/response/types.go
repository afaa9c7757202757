package response

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/Kirky-X/xlink/internal/audit"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	domain "github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/metrics"
	"github.com/Kirky-X/xlink/internal/service"
)

type WelcomePayload struct {
	Message string `json:"message"`
}

type HealthPayload struct {
	Status       string `json:"status"`
	DeviceID     string `json:"deviceId"`
	RetryRunning bool   `json:"retryRunning"`
}

type WelcomeResponse struct {
	Success   bool           `json:"success"`
	Data      WelcomePayload `json:"data"`
	Timestamp string         `json:"timestamp"`
}

type HealthResponse struct {
	Success   bool          `json:"success"`
	Data      HealthPayload `json:"data"`
	Timestamp string        `json:"timestamp"`
}

type SchedulerControlPayload struct {
	Message string `json:"message"`
}

type SchedulerControlResponse struct {
	Success   bool                    `json:"success"`
	Data      SchedulerControlPayload `json:"data"`
	Timestamp string                  `json:"timestamp"`
}

// MessageDTO is a public-facing representation of a message
// used in API responses. It decouples the wire format from
// the domain entity and plays nicely with Swagger.
type MessageDTO struct {
	ID        string     `json:"id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Group     string     `json:"group,omitempty"`
	Content   string     `json:"content"`
	Priority  string     `json:"priority"`
	Status    string     `json:"status"`
	Channel   string     `json:"channel,omitempty"`
	Attempts  int        `json:"attempts"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type SentMessagesPayload struct {
	Items []MessageDTO `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

type SentMessagesResponse struct {
	Success   bool                `json:"success"`
	Data      SentMessagesPayload `json:"data"`
	Timestamp string              `json:"timestamp"`
}

// FromDomainMessage converts a domain message into its DTO.
func FromDomainMessage(m *domain.Message) MessageDTO {
	dto := MessageDTO{
		ID:        m.ID.String(),
		From:      m.Sender.String(),
		To:        m.Recipient.String(),
		Content:   m.Payload.Text,
		Priority:  m.Priority.String(),
		Status:    string(m.Status),
		Channel:   string(m.Channel),
		Attempts:  m.Attempts,
		SentAt:    m.SentAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.GroupID != nil {
		dto.Group = m.GroupID.String()
	}
	return dto
}

// FromDomainMessages converts domain messages into DTOs
// for use in HTTP responses.
func FromDomainMessages(msgs []*domain.Message) []MessageDTO {
	return lo.Map(msgs, func(m *domain.Message, _ int) MessageDTO {
		return FromDomainMessage(m)
	})
}

// SendPayload acknowledges a direct send.
type SendPayload struct {
	MessageID string `json:"messageId"`
}

type SendResponse struct {
	Success   bool        `json:"success"`
	Data      SendPayload `json:"data"`
	Timestamp string      `json:"timestamp"`
}

type MemberDTO struct {
	DeviceID string    `json:"deviceId"`
	Role     string    `json:"role"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joinedAt"`
	LastSeen time.Time `json:"lastSeen"`
}

type GroupDTO struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Owner     string      `json:"owner"`
	Members   []MemberDTO `json:"members"`
	CreatedAt time.Time   `json:"createdAt"`
}

type GroupResponse struct {
	Success   bool     `json:"success"`
	Data      GroupDTO `json:"data"`
	Timestamp string   `json:"timestamp"`
}

type GroupsPayload struct {
	Items []GroupDTO `json:"items"`
}

type GroupsResponse struct {
	Success   bool          `json:"success"`
	Data      GroupsPayload `json:"data"`
	Timestamp string        `json:"timestamp"`
}

// FromDomainGroup converts a group into its DTO. Members are ordered by
// device id so responses are stable.
func FromDomainGroup(g *group.Group) GroupDTO {
	members := lo.MapToSlice(g.Members, func(_ device.ID, m *group.Member) MemberDTO {
		return MemberDTO{
			DeviceID: m.DeviceID.String(),
			Role:     string(m.Role),
			Status:   string(m.Status),
			JoinedAt: m.JoinedAt,
			LastSeen: m.LastSeen,
		}
	})
	sort.Slice(members, func(i, j int) bool { return members[i].DeviceID < members[j].DeviceID })

	return GroupDTO{
		ID:        g.ID.String(),
		Name:      g.Name,
		Owner:     g.Owner.String(),
		Members:   members,
		CreatedAt: g.CreatedAt,
	}
}

func FromDomainGroups(gs []*group.Group) []GroupDTO {
	return lo.Map(gs, func(g *group.Group, _ int) GroupDTO { return FromDomainGroup(g) })
}

type BroadcastDTO struct {
	MessageID  string    `json:"messageId"`
	GroupID    string    `json:"groupId"`
	Strategy   string    `json:"strategy"`
	Total      int       `json:"total"`
	Delivered  []string  `json:"delivered"`
	Failed     []string  `json:"failed"`
	PendingAck []string  `json:"pendingAck"`
	Acked      []string  `json:"acked"`
	CreatedAt  time.Time `json:"createdAt"`
}

type BroadcastResponse struct {
	Success   bool         `json:"success"`
	Data      BroadcastDTO `json:"data"`
	Timestamp string       `json:"timestamp"`
}

func ids(in []device.ID) []string {
	return lo.Map(in, func(id device.ID, _ int) string { return id.String() })
}

func FromBroadcastResult(r *service.BroadcastResult) BroadcastDTO {
	return BroadcastDTO{
		MessageID:  r.MessageID.String(),
		GroupID:    r.GroupID.String(),
		Strategy:   string(r.Strategy),
		Total:      r.Total(),
		Delivered:  ids(r.Delivered),
		Failed:     ids(r.Failed),
		PendingAck: ids(r.PendingAck),
		Acked:      ids(r.Acked),
		CreatedAt:  r.CreatedAt,
	}
}

// IdentityPayload is the key peers need to seal text for this device.
type IdentityPayload struct {
	DeviceID    string `json:"deviceId"`
	PublicKey   string `json:"publicKey"`
	Fingerprint string `json:"fingerprint"`
}

type IdentityResponse struct {
	Success   bool            `json:"success"`
	Data      IdentityPayload `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type AuditPayload struct {
	Items []audit.Entry `json:"items"`
}

type AuditResponse struct {
	Success   bool         `json:"success"`
	Data      AuditPayload `json:"data"`
	Timestamp string       `json:"timestamp"`
}

type MetricsResponse struct {
	Success   bool           `json:"success"`
	Data      metrics.Report `json:"data"`
	Timestamp string         `json:"timestamp"`
}

// WebhookResponse is what the relay answers to an accepted message.
type WebhookResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}
