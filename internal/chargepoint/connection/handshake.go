package connection

import (
	"context"
	"fmt"

	"github.com/w3cp/w3cp/model"
)

// Error codes sent back in messageError replies.
const (
	CodeInvalidMessage     = "INVALID_MESSAGE"
	CodeUnsupportedMessage = "UNSUPPORTED_MESSAGE_TYPE"
)

// handle dispatches one inbound frame. A non-nil error ends the session.
func (c *Client) handle(ctx context.Context, data []byte) error {
	env, err := model.ParseEnvelope(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("discarding malformed message")
		return c.replyError(ctx, CodeInvalidMessage, err.Error())
	}

	log := c.logger.With().Str("message_type", string(env.Type)).Logger()
	log.Debug().Msg("message received")

	switch env.Type {
	case model.MessageTypeIdentityChallenge:
		challenge, err := decodeValid[model.IdentityChallenge](env)
		if err != nil {
			log.Warn().Err(err).Msg("invalid identity challenge")
			return c.replyError(ctx, CodeInvalidMessage, err.Error())
		}
		return c.answerChallenge(ctx, challenge)

	case model.MessageTypeConnectionStatus:
		status, err := decodeValid[model.ConnectionStatus](env)
		if err != nil {
			log.Warn().Err(err).Msg("invalid connection status")
			return c.replyError(ctx, CodeInvalidMessage, err.Error())
		}
		return c.applyConnectionStatus(ctx, status)

	case model.MessageTypeIdentityDiscovery:
		discovery, err := decodeValid[model.IdentityDiscovery](env)
		if err != nil {
			log.Warn().Err(err).Msg("invalid identity discovery")
			return c.replyError(ctx, CodeInvalidMessage, err.Error())
		}
		return c.answerDiscovery(ctx, discovery)

	case model.MessageTypeMessageError:
		msgErr, err := model.DecodePayload[model.MessageError](env)
		if err != nil {
			return nil
		}
		log.Warn().Str("code", msgErr.Code).Str("error", msgErr.Message).Msg("backend rejected a message")
		return nil

	default:
		log.Warn().Msg("unsupported message type")
		return c.replyError(ctx, CodeUnsupportedMessage, fmt.Sprintf("unsupported message type %q", env.Type))
	}
}

func decodeValid[T interface{ Validate() error }](env model.Envelope) (T, error) {
	payload, err := model.DecodePayload[T](env)
	if err != nil {
		return payload, err
	}
	if err := payload.Validate(); err != nil {
		return payload, fmt.Errorf("validate %s payload: %w", env.Type, err)
	}
	return payload, nil
}

// answerChallenge solves the requested proof of work over the identity
// proof and returns it signed.
func (c *Client) answerChallenge(ctx context.Context, challenge model.IdentityChallenge) error {
	proof := model.IdentityProof{
		CPID:         c.identity.CPID,
		Timestamp:    c.now().UTC(),
		Nonce:        challenge.Nonce,
		IdentityType: c.identity.Type,
		Web3Identity: c.identity.Web3,
	}

	start := c.now()
	if err := model.SolveProofOfWork(ctx, &proof, challenge.Difficulty); err != nil {
		return fmt.Errorf("solve proof of work: %w", err)
	}
	c.logger.Info().
		Int("difficulty", challenge.Difficulty).
		Int64("pow_nonce", proof.PowNonce).
		Dur("took", c.now().Sub(start)).
		Msg("identity challenge solved")

	return c.sendSigned(ctx, model.MessageTypeIdentityProof, proof)
}

func (c *Client) applyConnectionStatus(ctx context.Context, status model.ConnectionStatus) error {
	reason := ""
	if status.Reason != nil {
		reason = *status.Reason
	}

	if !status.Verified() {
		c.verified.Store(false)
		c.logger.Warn().Str("status", string(status.Status)).Str("reason", reason).Msg("backend closed the connection")
		return fmt.Errorf("%w: %s %s", ErrClosedByBackend, status.Status, reason)
	}

	if c.verified.Swap(true) {
		return nil
	}
	c.logger.Info().Msg("identity verified by backend")
	for _, fn := range c.listeners(&c.onVerified) {
		fn(ctx)
	}
	return nil
}

// answerDiscovery reports the public key and any configured certificate or
// DID.
func (c *Client) answerDiscovery(ctx context.Context, discovery model.IdentityDiscovery) error {
	pub, err := c.identity.Signer.PublicKey()
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	report := model.IdentityReport{
		CorrelationID:    discovery.CorrelationID,
		Timestamp:        c.now().UTC(),
		PublicKeys:       []model.PublicKey{pub},
		X509Certificates: []model.X509Identity{},
		Web3Identities:   []model.Web3Identity{},
	}
	if c.identity.X509 != nil {
		report.X509Certificates = append(report.X509Certificates, *c.identity.X509)
	}
	if c.identity.Web3 != nil {
		report.Web3Identities = append(report.Web3Identities, *c.identity.Web3)
	}

	return c.sendSigned(ctx, model.MessageTypeIdentityReport, report)
}

func (c *Client) sendSigned(ctx context.Context, t model.MessageType, payload any) error {
	msg := model.NewMessage(t, payload)
	if err := model.SignMessage(&msg, c.identity.Signer); err != nil {
		return fmt.Errorf("sign %s: %w", t, err)
	}
	if err := c.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}
	return nil
}

// replyError reports an unprocessable message. Failing to send it ends the
// session.
func (c *Client) replyError(ctx context.Context, code, message string) error {
	return c.Send(ctx, model.NewMessage(model.MessageTypeMessageError, model.MessageError{
		Code:    code,
		Message: message,
	}))
}
