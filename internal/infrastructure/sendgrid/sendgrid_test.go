package sendgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageID(t *testing.T) {
	assert.Equal(t, "abc", messageID(map[string][]string{"X-Message-Id": {"abc"}}))
	assert.Equal(t, "", messageID(map[string][]string{"Content-Type": {"text/plain"}}))
	assert.Equal(t, "", messageID(nil))
}
