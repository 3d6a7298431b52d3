package store

import "sync"

// subscriberBuffer is the channel buffer handed to each subscriber.
const subscriberBuffer = 16

// broker fans customization updates out to subscribers.
//
// Sends are non-blocking; if a subscriber's buffer is full, the update is
// dropped for that subscriber rather than blocking the writer.
type broker struct {
	mu          sync.RWMutex
	subscribers map[chan Customization]struct{}
}

func newBroker() *broker {
	return &broker{subscribers: make(map[chan Customization]struct{})}
}

func (b *broker) subscribe() <-chan Customization {
	ch := make(chan Customization, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	return ch
}

func (b *broker) unsubscribe(ch <-chan Customization) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range b.subscribers {
		if subCh == ch {
			delete(b.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (b *broker) publish(c Customization) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- c:
		default:
			// subscriber is slow, drop the message
		}
	}
}

// closeAll closes every subscriber channel.
func (b *broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
}
