package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter measures and cuts text in model tokens.
type TokenCounter interface {
	Count(text string) int
	Truncate(text string, max int) string
	Method() string
}

var (
	tiktokenOnce    sync.Once
	tiktokenCounter *TiktokenCounter
	tiktokenErr     error
)

// TiktokenCounter counts cl100k_base tokens.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// GetTiktokenCounter returns the shared cl100k_base counter.
func GetTiktokenCounter() (*TiktokenCounter, error) {
	tiktokenOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			tiktokenErr = err
			return
		}
		tiktokenCounter = &TiktokenCounter{encoding: enc}
	})
	if tiktokenErr != nil {
		return nil, tiktokenErr
	}
	return tiktokenCounter, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

func (c *TiktokenCounter) Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text
	}
	return c.encoding.Decode(tokens[:max])
}

func (c *TiktokenCounter) Method() string { return "tiktoken" }

// approxCounter assumes four characters per token.
type approxCounter struct{}

func (approxCounter) Count(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}

func (approxCounter) Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(text)
	if len(rs) <= max*4 {
		return text
	}
	return string(rs[:max*4])
}

func (approxCounter) Method() string { return "estimate" }

// DefaultTokenCounter returns the tiktoken counter, or the character estimate when the encoding is unavailable.
func DefaultTokenCounter() TokenCounter {
	if c, err := GetTiktokenCounter(); err == nil {
		return c
	}
	return approxCounter{}
}
