package coordinator

import (
	"strings"
	"time"

	"github.com/quorumlabs/quorum/pkg/models"
)

// streamResponse emits the answer as word tokens. The text is split on single
// spaces and each token except the last carries its trailing space, so
// concatenating the tokens reproduces the answer exactly. A fixed delay
// between tokens paces the stream.
func (c *Coordinator) streamResponse(sink Sink, text string) {
	tokens := strings.Split(text, " ")
	for i, token := range tokens {
		if i < len(tokens)-1 {
			token += " "
		}
		c.send(sink, models.NewTokenChunk(token))
		if c.tokenDelay > 0 {
			time.Sleep(c.tokenDelay)
		}
	}
}
