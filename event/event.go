// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultQueueSize        = 64
	DefaultAsyncQueueSize   = 1000
	DefaultAsyncWorkerCount = 4
)

var ErrBusStopped = errors.New("event bus is stopped")

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

type asyncEvent struct {
	eventType EventType
	event     Event
}

// Subscriber receives events from the bus. Close must be idempotent
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// EventBus fans out published events to the subscribers of their type
type EventBus struct {
	logger           *slog.Logger
	metrics          *eventMetrics
	queueSize        int
	asyncQueueSize   int
	asyncWorkerCount int
	subscribers      map[EventType]map[EventSubscriberId]Subscriber
	lastSubId        EventSubscriberId
	mu               sync.RWMutex
	asyncQueue       chan asyncEvent
	asyncWg          sync.WaitGroup
	handlerWg        sync.WaitGroup
	stopCh           chan struct{}
	stopped          bool
	stopMu           sync.RWMutex
	stopOpMu         sync.Mutex
}

// NewEventBus creates an event bus. The async workers start with the first
// PublishAsync
func NewEventBus(opts ...EventBusOptionFunc) *EventBus {
	e := &EventBus{
		queueSize:        DefaultQueueSize,
		asyncQueueSize:   DefaultAsyncQueueSize,
		asyncWorkerCount: DefaultAsyncWorkerCount,
		subscribers:      make(map[EventType]map[EventSubscriberId]Subscriber),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return e
}

// startWorkers starts the async worker pool. The caller holds stopMu
func (e *EventBus) startWorkers() {
	e.asyncQueue = make(chan asyncEvent, e.asyncQueueSize)
	e.stopCh = make(chan struct{})
	for range e.asyncWorkerCount {
		e.asyncWg.Add(1)
		go e.asyncWorker(e.asyncQueue, e.stopCh)
	}
}

func (e *EventBus) asyncWorker(queue <-chan asyncEvent, stop <-chan struct{}) {
	defer e.asyncWg.Done()
	for {
		select {
		case <-stop:
			return
		case ae := <-queue:
			e.Publish(ae.eventType, ae.event)
		}
	}
}

// channelSubscriber delivers to a buffered channel. Events arriving while the
// buffer is full are dropped so that a slow reader cannot stall publishers
type channelSubscriber struct {
	ch      chan Event
	mu      sync.RWMutex
	closed  bool
	dropped func()
}

func newChannelSubscriber(buffer int, dropped func()) *channelSubscriber {
	return &channelSubscriber{
		ch:      make(chan Event, buffer),
		dropped: dropped,
	}
}

func (c *channelSubscriber) Deliver(evt Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
	default:
		if c.dropped != nil {
			c.dropped()
		}
	}
	return nil
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// Subscribe returns a channel receiving events of eventType
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	sub := newChannelSubscriber(e.queueSize, func() {
		e.logger.Warn(
			"subscriber queue full, dropping event",
			"component", "event",
			"type", eventType,
		)
		if e.metrics != nil {
			e.metrics.dropped.WithLabelValues(string(eventType)).Inc()
		}
	})
	subId := e.add(eventType, sub, "in-memory")
	return subId, sub.ch
}

// SubscribeFunc calls handlerFunc for each event of eventType from its own
// goroutine. A panicking handler is logged and keeps receiving events
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	// Hold the stop lock so that Stop cannot wait on handlerWg before Add
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return 0
	}
	subId, evtCh := e.Subscribe(eventType)
	e.handlerWg.Add(1)
	go func() {
		defer e.handlerWg.Done()
		for evt := range evtCh {
			e.runHandler(eventType, handlerFunc, evt)
		}
	}()
	return subId
}

func (e *EventBus) runHandler(eventType EventType, handlerFunc EventHandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(
				fmt.Sprintf("event handler panic: %v", r),
				"component", "event",
				"type", eventType,
			)
		}
	}()
	handlerFunc(evt)
}

// RegisterSubscriber adds a custom subscriber for eventType
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	return e.add(eventType, sub, "custom")
}

func (e *EventBus) add(eventType EventType, sub Subscriber, kind string) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	subId := e.lastSubId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]Subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType), kind).Inc()
	}
	return subId
}

func subscriberKind(sub Subscriber) string {
	if _, ok := sub.(*channelSubscriber); ok {
		return "in-memory"
	}
	return "custom"
}

// Unsubscribe removes a subscriber and closes it
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var sub Subscriber
	if subs, ok := e.subscribers[eventType]; ok {
		sub = subs[subId]
		delete(subs, subId)
		if len(subs) == 0 {
			delete(e.subscribers, eventType)
		}
	}
	e.mu.Unlock()
	if sub == nil {
		return
	}
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType), subscriberKind(sub)).Dec()
	}
	sub.Close()
}

// Publish delivers evt to every current subscriber of eventType before
// returning. A subscriber whose delivery fails is removed
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.RLock()
	subs := make(map[EventSubscriberId]Subscriber, len(e.subscribers[eventType]))
	for id, sub := range e.subscribers[eventType] {
		subs[id] = sub
	}
	e.mu.RUnlock()
	for id, sub := range subs {
		if err := deliver(sub, evt); err != nil {
			e.logger.Debug(
				"event delivery error",
				"component", "event",
				"type", eventType,
				"error", err,
			)
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType), subscriberKind(sub)).Inc()
			}
			e.Unsubscribe(eventType, id)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// PublishAsync queues evt for delivery by the worker pool. It returns false
// when the bus is stopped or the queue is full
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()
	if e.stopped {
		return false
	}
	if e.asyncQueue == nil {
		e.startWorkers()
	}
	select {
	case e.asyncQueue <- asyncEvent{eventType: eventType, event: evt}:
		return true
	default:
		e.logger.Warn(
			"async event queue full, dropping event",
			"component", "event",
			"type", eventType,
		)
		if e.metrics != nil {
			e.metrics.dropped.WithLabelValues(string(eventType)).Inc()
		}
		return false
	}
}

// Stop closes every subscriber and waits for the async workers and handler
// goroutines to exit. Queued async events are discarded. The bus can be used
// again afterwards
func (e *EventBus) Stop() {
	e.stopOpMu.Lock()
	defer e.stopOpMu.Unlock()

	e.stopMu.Lock()
	e.stopped = true
	if e.stopCh != nil {
		close(e.stopCh)
	}
	e.stopMu.Unlock()
	e.asyncWg.Wait()

	e.mu.Lock()
	subs := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]Subscriber)
	e.mu.Unlock()
	for _, evtTypeSubs := range subs {
		for _, sub := range evtTypeSubs {
			sub.Close()
		}
	}
	e.handlerWg.Wait()
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}

	e.stopMu.Lock()
	e.asyncQueue = nil
	e.stopCh = nil
	e.stopped = false
	e.stopMu.Unlock()
}
