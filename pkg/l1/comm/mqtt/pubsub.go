package mqtt

import (
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/cobslink/pkg/l1/msgs"
)

// Handler is the callback when a message is received.
// The topic has the prefix of the Queue stripped.
type Handler func(topic string, payload []byte)

// MsgHandler is the callback of a decoded Typed message.
type MsgHandler func(topic string, msg msgs.Message)

// Queue wraps MQTT client. All topics are relative to TopicPrefix.
type Queue struct {
	Client       paho.Client
	TopicPrefix  string
	OnConnect    ConnectHandler
	OnDisconnect ConnectHandler

	subsLock sync.RWMutex
	// subs are keyed by filter, each filter is subscribed once.
	subs map[string][]*Subscription
}

// ConnectHandler is to handle connect/disconnect events.
type ConnectHandler func(*Queue)

// Subscription is a handler registered on a filter.
type Subscription struct {
	Token paho.Token

	queue   *Queue
	filter  string
	handler Handler
	closed  atomic.Bool
}

// MatchTopic matches topic with an MQTT filter. "+" matches one level,
// a trailing "#" matches the parent level and everything below.
func MatchTopic(topic, filter string) bool {
	for {
		level, restF, moreF := strings.Cut(filter, "/")
		if level == "#" {
			return !moreF
		}
		tlevel, restT, moreT := strings.Cut(topic, "/")
		if level != "+" && level != tlevel {
			return false
		}
		if !moreT {
			return !moreF || restF == "#"
		}
		if !moreF {
			return false
		}
		filter, topic = restF, restT
	}
}

// ClientOptionsFromURL creates ClientOptions from URL.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := u.Path
	if strings.HasPrefix(topicPrefix, "/") {
		topicPrefix = topicPrefix[1:]
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(DefaultConnectTimeout)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}

	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}

	return opts, topicPrefix, nil
}

// DefaultConnectTimeout limits the wait for the broker to accept
// a connection.
const DefaultConnectTimeout = 5 * time.Second

// NewQueue creates Queue.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix}
	options.SetOnConnectHandler(q.OnConnectHandler)
	options.SetConnectionLostHandler(q.ConnectionLostHandler)
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates Queue from URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// Connect connects the client.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(0)
	return nil
}

// Sub registers a handler on a filter. The broker subscription is made
// for the first handler of the filter.
func (q *Queue) Sub(filter string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, filter: filter, handler: handler}
	q.subsLock.Lock()
	if q.subs == nil {
		q.subs = make(map[string][]*Subscription)
	}
	first := len(q.subs[filter]) == 0
	q.subs[filter] = append(q.subs[filter], sub)
	q.subsLock.Unlock()

	if !first {
		sub.Token = &paho.DummyToken{}
		return sub
	}
	glog.V(2).Infof("SUB %q", q.TopicPrefix+filter)
	sub.Token = q.Client.Subscribe(q.TopicPrefix+filter, 0, q.dispatcher(filter))
	return sub
}

// SubMsg registers a handler receiving Typed messages. Payloads failing
// to decode are logged and dropped.
func (q *Queue) SubMsg(filter string, handler MsgHandler) *Subscription {
	return q.Sub(filter, func(topic string, payload []byte) {
		msg, err := msgs.DecodeMessage(payload)
		if err != nil {
			glog.Warningf("%s: bad message: %v", topic, err)
			return
		}
		handler(topic, msg)
	})
}

// Pub publishes to a topic.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, 0, false)
}

// PubMsg publishes a message wrapped in Typed.
func (q *Queue) PubMsg(topic string, msg msgs.Message, qos byte, retain bool) (paho.Token, error) {
	payload, err := msgs.Encode(msg)
	if err != nil {
		return nil, err
	}
	return q.PubWith(topic, payload, qos, retain), nil
}

// ConnectAndWait connects the client and waits for the result.
func (q *Queue) ConnectAndWait() error {
	token := q.Connect()
	token.Wait()
	return token.Error()
}

// PubWith publishes with QoS and retain settings.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

// Resubscribe is used in OnConnect handler to subscribe all existing filters.
func (q *Queue) Resubscribe() {
	q.subsLock.RLock()
	filters := make([]string, 0, len(q.subs))
	for filter := range q.subs {
		filters = append(filters, filter)
	}
	q.subsLock.RUnlock()
	for _, filter := range filters {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+filter)
		q.Client.Subscribe(q.TopicPrefix+filter, 0, q.dispatcher(filter))
	}
}

// OnConnectHandler is the default implementation of paho.OnConnectHandler.
func (q *Queue) OnConnectHandler(paho.Client) {
	glog.Info("connected")
	q.Resubscribe()
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

// ConnectionLostHandler is the default implementation of paho.ConnectLostHandler.
func (q *Queue) ConnectionLostHandler(c paho.Client, err error) {
	glog.Warningf("connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q)
	}
}

// dispatcher delivers messages routed by the client for filter to the
// handlers registered on it. The client calls one dispatcher per matching
// filter, so overlapping filters don't duplicate deliveries.
func (q *Queue) dispatcher(filter string) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		topic := msg.Topic()
		if !strings.HasPrefix(topic, q.TopicPrefix) {
			return
		}
		topic = topic[len(q.TopicPrefix):]
		if !MatchTopic(topic, filter) {
			return
		}
		glog.V(2).Infof("RCV %q", topic)
		q.subsLock.RLock()
		subs := append([]*Subscription(nil), q.subs[filter]...)
		q.subsLock.RUnlock()
		payload := msg.Payload()
		for _, sub := range subs {
			// a handler closed after the copy is skipped.
			if !sub.closed.Load() {
				sub.handler(topic, payload)
			}
		}
	}
}

// Close unregisters the handler and unsubscribes the filter when it
// was the last one. A closed handler receives no more messages.
func (s *Subscription) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	q := s.queue
	q.subsLock.Lock()
	subs := q.subs[s.filter]
	for n, sub := range subs {
		if sub == s {
			subs = append(subs[:n:n], subs[n+1:]...)
			break
		}
	}
	unsub := len(subs) == 0
	if unsub {
		delete(q.subs, s.filter)
	} else {
		q.subs[s.filter] = subs
	}
	q.subsLock.Unlock()
	if !unsub {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", q.TopicPrefix+s.filter)
	token := q.Client.Unsubscribe(q.TopicPrefix + s.filter)
	token.Wait()
	return token.Error()
}
