package rcon

import (
	"context"

	"go.uber.org/zap"
)

const (
	passwordPrompt     = "Password: "
	authenticatedReply = "Authenticated=1\r\n"
)

// authenticate runs the login exchange. probe must already be queued: it sends
// nothing and is answered by the server's unsolicited password prompt. The
// password hash is then sent as a regular command.
func (c *Client) authenticate(ctx context.Context, probe *command) error {
	prompt, err := c.await(ctx, probe)
	if err != nil {
		return err
	}
	if string(prompt) != passwordPrompt {
		c.log.Warn("unexpected login prompt", zap.ByteString("reply", prompt))
		return AuthFailed
	}

	cmd, ok := c.submit(c.hash, false)
	if !ok {
		return Disconnected
	}
	reply, err := c.await(ctx, cmd)
	if err != nil {
		return err
	}
	if string(reply) != authenticatedReply {
		c.log.Warn("login rejected", zap.ByteString("reply", reply))
		return AuthIncorrect
	}
	return nil
}
