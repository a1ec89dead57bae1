package device

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// handlerTimeout bounds work triggered by an inbound MQTT message.
const handlerTimeout = 5 * time.Second

type pairingSession struct {
	deviceID int64
	expires  time.Time
}

// PairingRequest is the payload broadcast on TopicPairingStart.
type PairingRequest struct {
	Session   string `json:"session"`
	DeviceID  int64  `json:"deviceId"`
	TypeName  string `json:"typeName"`
	SkillName string `json:"skillName"`
}

// PairingReply is what a device sends back once it has been discovered.
type PairingReply struct {
	Session string `json:"session"`
	UID     string `json:"uid"`
}

// SetPairingTimeout sets how long a pairing session stays open.
func (r *Registry) SetPairingTimeout(d time.Duration) {
	if d > 0 {
		r.pairingTimeout = d
	}
}

// StartBroadcasting opens a pairing session for d and announces it.
// The session is dropped again if the announcement fails.
func (r *Registry) StartBroadcasting(ctx context.Context, d *Device) error {
	session := uuid.NewString()
	now := r.now()

	r.pairMu.Lock()
	r.expireSessionsLocked(now)
	r.sessions[session] = pairingSession{deviceID: d.ID(), expires: now.Add(r.pairingTimeout)}
	r.pairMu.Unlock()

	if r.svc.Notifier == nil {
		return nil
	}

	payload, err := json.Marshal(PairingRequest{
		Session:   session,
		DeviceID:  d.ID(),
		TypeName:  d.TypeName(),
		SkillName: d.SkillName(),
	})
	if err != nil {
		r.dropSession(session)
		return fmt.Errorf("%w: encoding pairing request: %w", ErrNotification, err)
	}

	err = r.svc.Notifier.Publish(ctx, TopicPairingStart, payload)
	r.svc.metrics().ObserveNotify(TopicPairingStart, err)
	if err != nil {
		r.dropSession(session)
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}

	r.svc.logger().Info("pairing broadcast started", "session", session, "device_id", d.ID())
	return nil
}

// CompletePairing closes a session and records uid on its device.
func (r *Registry) CompletePairing(ctx context.Context, session, uid string) error {
	if uid == "" {
		return ErrUIDRequired
	}

	r.pairMu.Lock()
	r.expireSessionsLocked(r.now())
	s, ok := r.sessions[session]
	delete(r.sessions, session)
	r.pairMu.Unlock()

	if !ok {
		return ErrPairingSessionNotFound
	}

	d, err := r.Get(s.deviceID)
	if err != nil {
		return err
	}
	if err := d.PairingDone(ctx, uid); err != nil {
		return err
	}

	r.svc.logger().Info("device paired", "device_id", s.deviceID, "uid", uid)
	return nil
}

// PendingPairings returns the number of open, unexpired sessions.
func (r *Registry) PendingPairings() int {
	r.pairMu.Lock()
	defer r.pairMu.Unlock()
	r.expireSessionsLocked(r.now())
	return len(r.sessions)
}

// HandlePairingReply adapts an MQTT pairing reply to CompletePairing.
func (r *Registry) HandlePairingReply(_ string, payload []byte) error {
	var reply PairingReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return fmt.Errorf("decoding pairing reply: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	return r.CompletePairing(ctx, reply.Session, reply.UID)
}

func (r *Registry) dropSession(session string) {
	r.pairMu.Lock()
	delete(r.sessions, session)
	r.pairMu.Unlock()
}

func (r *Registry) expireSessionsLocked(now time.Time) {
	for id, s := range r.sessions {
		if now.After(s.expires) {
			delete(r.sessions, id)
		}
	}
}
