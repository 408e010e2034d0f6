package compose_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreachflow/campaignflow/internal/compose"
	"github.com/outreachflow/campaignflow/internal/template"
)

func TestStaticComposer_PrefersCustomOverFallback(t *testing.T) {
	c := compose.NewStaticComposer()

	text, err := c.Compose(context.Background(), false, "Hey {{first_name}}", compose.DefaultConnectionMessage, template.Values{FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hey Ada", text)
}

func TestStaticComposer_FallsBackWhenCustomEmpty(t *testing.T) {
	c := compose.NewStaticComposer()

	text, err := c.Compose(context.Background(), true, "", compose.DefaultConnectionMessage, template.Values{FirstName: "Grace"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Grace, I'd like to connect.", text)
}
