package realtime

import (
	"context"
	"net/http"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type membership struct {
	client     *Client
	campaignID string
}

type publish struct {
	campaignID string
	envelope   *Envelope
}

// Hub fans donation deltas out to campaign subscribers. All membership state
// is owned by the Run loop; the pumps and the notifier only talk to it over
// channels.
type Hub struct {
	log  *zap.Logger
	node *snowflake.Node

	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan publish

	rooms   map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}

	shutdown chan struct{}
	once     sync.Once
}

func NewHub(log *zap.Logger, node *snowflake.Node) *Hub {
	return &Hub{
		log:        log.Named("realtime.hub"),
		node:       node,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan publish, 256),
		rooms:      make(map[string]map[*Client]struct{}),
		members:    make(map[*Client]map[string]struct{}),
		shutdown:   make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-h.shutdown:
			return
		case cl := <-h.register:
			h.members[cl] = make(map[string]struct{})
		case cl := <-h.unregister:
			h.removeClient(cl)
		case m := <-h.join:
			h.addMember(m.client, m.campaignID)
		case m := <-h.leave:
			h.removeMember(m.client, m.campaignID)
		case p := <-h.broadcast:
			h.deliver(p.campaignID, p.envelope)
		}
	}
}

func (h *Hub) Shutdown() {
	h.once.Do(func() {
		close(h.shutdown)
		for cl := range h.members {
			cl.close()
		}
	})
}

func (h *Hub) addMember(cl *Client, campaignID string) {
	subs, ok := h.members[cl]
	if !ok {
		return
	}
	subs[campaignID] = struct{}{}

	room, ok := h.rooms[campaignID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[campaignID] = room
	}
	room[cl] = struct{}{}

	h.send(cl, &Envelope{Type: TypeSubscribed, CampaignID: campaignID})
}

func (h *Hub) removeMember(cl *Client, campaignID string) {
	if subs, ok := h.members[cl]; ok {
		delete(subs, campaignID)
	}
	if room, ok := h.rooms[campaignID]; ok {
		delete(room, cl)
		if len(room) == 0 {
			delete(h.rooms, campaignID)
		}
	}
	h.send(cl, &Envelope{Type: TypeUnsubscribed, CampaignID: campaignID})
}

func (h *Hub) removeClient(cl *Client) {
	subs, ok := h.members[cl]
	if !ok {
		return
	}
	for campaignID := range subs {
		if room, exists := h.rooms[campaignID]; exists {
			delete(room, cl)
			if len(room) == 0 {
				delete(h.rooms, campaignID)
			}
		}
	}
	delete(h.members, cl)
	cl.close()
}

func (h *Hub) deliver(campaignID string, env *Envelope) {
	room, ok := h.rooms[campaignID]
	if !ok {
		return
	}
	for cl := range room {
		h.send(cl, env)
	}
}

// send never blocks the Run loop. A subscriber that cannot keep up loses
// frames rather than stalling everyone else.
func (h *Hub) send(cl *Client, env *Envelope) {
	if cl.isClosed() {
		return
	}
	select {
	case cl.send <- env:
	default:
		h.log.Warn("subscriber buffer full, dropping frame",
			zap.String("client_id", cl.id),
			zap.String("campaign_id", env.CampaignID),
		)
	}
}

// Publish hands an envelope to the Run loop, giving up when the hub is
// saturated or the context expires.
func (h *Hub) Publish(ctx context.Context, campaignID string, env *Envelope) error {
	select {
	case h.broadcast <- publish{campaignID: campaignID, envelope: env}:
		return nil
	case <-h.shutdown:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleConnection upgrades the request and starts the client pumps.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	cl := newClient(h.node.Generate().String(), conn, h.log)
	select {
	case h.register <- cl:
	case <-h.shutdown:
		cl.close()
		return ErrHubClosed
	}

	go cl.writePump()
	go cl.readPump(h)
	return nil
}
