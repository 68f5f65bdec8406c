// Package bus is an in-process topic pub/sub used as the reporting boundary.
// Topics are token paths; subscriptions may use "+" for one level and "#"
// for any remaining levels. Retained messages are replayed to new matching
// subscribers. Slow subscribers lose their oldest queued message.
package bus

import (
	"strings"
	"sync"
)

const (
	SingleLevel = "+"
	MultiLevel  = "#"
)

// Topic is a sequence of path tokens.
type Topic []string

// ParseTopic splits "a/b/c" into Topic{"a","b","c"}.
func ParseTopic(s string) Topic {
	if s == "" {
		return nil
	}
	return Topic(strings.Split(s, "/"))
}

func (t Topic) String() string { return strings.Join(t, "/") }

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

type node struct {
	children map[string]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok string, create bool) *node {
	if c, ok := n.children[tok]; ok {
		return c
	}
	if !create {
		return nil
	}
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

type Bus struct {
	mu   sync.Mutex
	subs *node // subscription filters, keyed by filter tokens
	ret  *node // retained messages, keyed by concrete topic tokens
	qLen int
}

// NewBus creates a bus whose subscriptions buffer queueLen messages.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{subs: &node{}, ret: &node{}, qLen: queueLen}
}

func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// Publish delivers msg to every matching subscription. A retained message
// with a nil payload clears the retained value for its topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		n := b.ret
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
			b.pruneRetained(msg.Topic)
			return
		}
		n.retained = msg
	}

	var matched []*Subscription
	collect(b.subs, msg.Topic, &matched)
	for _, s := range matched {
		deliver(s, msg)
	}
}

// collect walks filter nodes matching topic t.
func collect(n *node, t Topic, out *[]*Subscription) {
	if h := n.children[MultiLevel]; h != nil {
		*out = append(*out, h.subs...)
	}
	if len(t) == 0 {
		*out = append(*out, n.subs...)
		return
	}
	if c := n.children[t[0]]; c != nil {
		collect(c, t[1:], out)
	}
	if c := n.children[SingleLevel]; c != nil {
		collect(c, t[1:], out)
	}
}

// retainedFor walks concrete retained nodes matching filter f.
func retainedFor(n *node, f Topic, out *[]*Message) {
	if len(f) == 0 {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch f[0] {
	case MultiLevel:
		var walk func(*node)
		walk = func(x *node) {
			if x.retained != nil {
				*out = append(*out, x.retained)
			}
			for _, c := range x.children {
				walk(c)
			}
		}
		walk(n)
	case SingleLevel:
		for _, c := range n.children {
			retainedFor(c, f[1:], out)
		}
	default:
		if c := n.children[f[0]]; c != nil {
			retainedFor(c, f[1:], out)
		}
	}
}

func deliver(s *Subscription, msg *Message) {
	select {
	case s.ch <- msg:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- msg:
	default:
	}
}

func (b *Bus) pruneRetained(t Topic) {
	path := []*node{b.ret}
	n := b.ret
	for _, tok := range t {
		if n = n.children[tok]; n == nil {
			return
		}
		path = append(path, n)
	}
	for i := len(t) - 1; i >= 0; i-- {
		c := path[i+1]
		if c.retained != nil || len(c.children) > 0 {
			return
		}
		delete(path[i].children, t[i])
	}
}

func (b *Bus) add(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.subs
	for _, tok := range s.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, s)

	var rs []*Message
	retainedFor(b.ret, s.topic, &rs)
	for _, m := range rs {
		deliver(s, m)
	}
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	path := []*node{b.subs}
	n := b.subs
	for _, tok := range s.topic {
		if n = n.children[tok]; n == nil {
			return
		}
		path = append(path, n)
	}
	for i, x := range n.subs {
		if x == s {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	for i := len(s.topic) - 1; i >= 0; i-- {
		c := path[i+1]
		if len(c.subs) > 0 || len(c.children) > 0 {
			return
		}
		delete(path[i].children, s.topic[i])
	}
}

// Connection owns a set of subscriptions so a component can release them
// together.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(t Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(t, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(t Topic) *Subscription {
	s := &Subscription{topic: t, ch: make(chan *Message, c.bus.qLen), conn: c}
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()
	c.bus.add(s)
	return s
}

// Unsubscribe removes s and closes its channel.
func (c *Connection) Unsubscribe(s *Subscription) {
	c.mu.Lock()
	found := false
	for i, x := range c.subs {
		if x == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.remove(s)
	close(s.ch)
}

// Disconnect closes every subscription owned by c.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		c.bus.remove(s)
		close(s.ch)
	}
}
