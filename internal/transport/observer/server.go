// Package observer exposes a read-only WebSocket feed of population
// statistics snapshots, modeled on the teacher's
// internal/transport/observer.Server.
package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Snapshot is one broadcastable stats payload. The population façade
// fills this in from UpdateOrganismStats and UpdateGenotypeStats.
type Snapshot struct {
	Update           int64   `json:"update"`
	NumOrganisms     int     `json:"num_organisms"`
	NumGenotypes     int     `json:"num_genotypes"`
	AverageFitness   float64 `json:"average_fitness"`
	AverageMerit     float64 `json:"average_merit"`
	MaxFitness       float64 `json:"max_fitness"`
	ShannonDiversity float64 `json:"shannon_diversity"`
}

// Server fans out Snapshot broadcasts to every connected subscriber.
// It holds no reference to the population façade directly; the caller
// drives Broadcast after each update.
type Server struct {
	log      *log.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewServer(logger *log.Logger) *Server {
	return &Server{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs: make(map[chan []byte]struct{}),
	}
}

// Broadcast sends one Snapshot to every subscriber, dropping it for any
// subscriber whose outbound queue is full rather than blocking.
func (s *Server) Broadcast(snap Snapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		s.log.Printf("observer: marshal snapshot: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- b:
		default:
		}
	}
}

func (s *Server) join() chan []byte {
	ch := make(chan []byte, 16)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) leave(ch chan []byte) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
	close(ch)
}

// WSHandler serves the read-only stats feed. Only loopback clients are
// admitted, matching the teacher's observer bootstrap restriction.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ch := s.join()
		defer s.leave(ch)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case b, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
