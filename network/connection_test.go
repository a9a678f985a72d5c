package network

import (
	"math"
	"testing"
)

func TestWSConnection_Send_RejectsOversizedPayload(t *testing.T) {
	conn := NewWSConnection(nil)

	err := conn.Send(1, make([]byte, math.MaxUint16+1))
	if err != ErrPayloadTooLarge {
		t.Fatalf("Expected ErrPayloadTooLarge for a payload over the frame limit, got %v", err)
	}
}
