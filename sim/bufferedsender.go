package sim

import (
	"log"
)

// BufferedSender can delegate the sending process.
//
// A component that generates several messages in one cycle pushes them into
// a BufferedSender and calls Tick every cycle to send them out in order.
type BufferedSender interface {
	// CanSend checks if the buffer has enough space to hold "count" messages.
	CanSend(count int) bool

	// Send enqueues a message into the buffer and the message will be sent out
	// later with the Tick function.
	Send(msg Msg)

	// Clear removes all the messages to send
	Clear()

	// Size returns the number of messages waiting to be sent.
	Size() int

	// Tick sends as many messages as the port accepts. It returns true if at
	// least one message is sent.
	Tick() bool
}

// NewBufferedSender creates a new BufferedSender with certain buffer capacity
// and send to a certain port.
func NewBufferedSender(
	port Port,
	buffer Buffer,
	timeTeller TimeTeller,
) BufferedSender {
	return &bufferedSenderImpl{
		port:       port,
		buffer:     buffer,
		timeTeller: timeTeller,
	}
}

type bufferedSenderImpl struct {
	port       Port
	buffer     Buffer
	timeTeller TimeTeller
}

func (s *bufferedSenderImpl) CanSend(count int) bool {
	if count > s.buffer.Capacity() {
		log.Panicf("trying to send %d messages through %s, exceeding capacity",
			count, s.buffer.Name())
	}

	return count+s.buffer.Size() <= s.buffer.Capacity()
}

func (s *bufferedSenderImpl) Send(msg Msg) {
	s.buffer.Push(msg)
}

func (s *bufferedSenderImpl) Clear() {
	s.buffer.Clear()
}

func (s *bufferedSenderImpl) Size() int {
	return s.buffer.Size()
}

func (s *bufferedSenderImpl) Tick() bool {
	madeProgress := false

	for {
		item := s.buffer.Peek()
		if item == nil {
			return madeProgress
		}

		msg := item.(Msg)
		msg.Meta().SendTime = s.timeTeller.CurrentTime()

		err := s.port.Send(msg)
		if err != nil {
			return madeProgress
		}

		s.buffer.Pop()
		madeProgress = true
	}
}
