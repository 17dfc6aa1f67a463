package sink

import (
	"context"
	"errors"
	"log"
	"time"
)

// Level discriminates a log entry's audience: User lines are meant for
// the operator watching the session; Debug lines are for diagnosing
// the tool itself.
type Level int

const (
	LevelUser Level = iota
	LevelDebug
)

// Entry is one log line broadcast through the Manager.
type Entry struct {
	Level Level
	Text  string
}

type Manager struct {
	incoming    chan *Entry
	subscribers []*Subscriber
	register    chan *Subscriber
	unregister  chan *Subscriber
}

func NewManager() *Manager {
	mgr := &Manager{
		incoming:    make(chan *Entry, 100),
		subscribers: make([]*Subscriber, 0),
		register:    make(chan *Subscriber, 10),
		unregister:  make(chan *Subscriber, 10),
	}
	go mgr.run(context.TODO())
	return mgr
}

func (mgr *Manager) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-mgr.register:
			mgr.subscribers = append(mgr.subscribers, sub)
		case sub := <-mgr.unregister:
			for i, s := range mgr.subscribers {
				if s == sub {
					mgr.subscribers = append(mgr.subscribers[:i], mgr.subscribers[i+1:]...)
					close(sub.incoming)
					break
				}
			}
		case msg := <-mgr.incoming:
			for _, sub := range mgr.subscribers {
				select {
				case sub.incoming <- msg:
				default:
					log.Println("failed to deliver message to subscriber")
					sub.failedDeliveries++
					if sub.failedDeliveries >= 10 {
						mgr.unregister <- sub
					}
				}
			}
		}
	}
}

var ErrPushTimeout = errors.New("timeout pushing message")

func (mgr *Manager) Push(entry *Entry) error {
	t := time.NewTimer(1 * time.Second)
	defer t.Stop()
	select {
	case mgr.incoming <- entry:
		return nil
	case <-t.C:
		return ErrPushTimeout
	}
}

type Subscriber struct {
	mgr              *Manager
	incoming         chan *Entry
	failedDeliveries int
}

func (mgr *Manager) NewSubscriber(onEntry func(*Entry)) *Subscriber {
	sub := &Subscriber{
		mgr:      mgr,
		incoming: make(chan *Entry, 100),
	}
	mgr.register <- sub
	if onEntry != nil {
		go func() {
			for entry := range sub.incoming {
				if entry == nil {
					return
				}
				onEntry(entry)
			}
		}()
	}
	return sub
}

func (sub *Subscriber) Close() {
	sub.mgr.unregister <- sub
}

func (sub *Subscriber) Next(ctx context.Context) (*Entry, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case entry := <-sub.incoming:
		return entry, nil
	}
}
