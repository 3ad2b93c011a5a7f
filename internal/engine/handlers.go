package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"pairlink/internal/domain"
)

func (e *Engine) requestLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case req, ok := <-e.router.Requests():
			if !ok {
				return
			}
			e.dispatchRequest(req)
		}
	}
}

func (e *Engine) responseLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case resp, ok := <-e.router.Responses():
			if !ok {
				return
			}
			if resp.Method != e.proto.ProposeMethod {
				continue
			}
			if err := e.onProposalResponse(resp); err != nil {
				e.logger.Error("proposal response handling failed",
					zap.Int64("id", int64(resp.ID)), zap.Error(err))
				e.emit(domain.ErrorEvent{Err: err})
			}
		}
	}
}

func (e *Engine) connectivityLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case connected, ok := <-e.gateway.Connectivity():
			if !ok {
				return
			}
			e.emit(domain.ConnectionStateEvent{Connected: connected})
			if connected {
				if err := e.resubscribe(); err != nil {
					e.logger.Error("resubscribe failed", zap.Error(err))
					e.emit(domain.ErrorEvent{Err: err})
				}
			}
		}
	}
}

func (e *Engine) dispatchRequest(req domain.InboundRequest) {
	var err error
	switch req.Method {
	case e.proto.ProposeMethod:
		err = e.onProposeRequest(req)
	case e.proto.MessageMethod:
		err = e.onMessage(req)
	case e.proto.DeleteMethod:
		err = e.onDelete(req)
	default:
		e.logger.Debug("ignoring unknown method",
			zap.String("method", req.Method), zap.String("topic", req.Topic.String()))
		return
	}
	if err != nil {
		e.logger.Error("request handling failed",
			zap.String("method", req.Method),
			zap.Int64("id", int64(req.ID)),
			zap.Error(err))
		e.emit(domain.ErrorEvent{Err: err})
	}
}

func (e *Engine) onProposeRequest(req domain.InboundRequest) error {
	var params proposeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return fmt.Errorf("malformed proposal params: %w", err)
	}
	peer, err := domain.ParsePublicKey(params.PublicKey)
	if err != nil {
		return err
	}
	pending := domain.PendingRequest{
		ID:        req.ID,
		Topic:     req.Topic,
		Method:    req.Method,
		Params:    req.Params,
		CreatedAt: e.clk.Now(),
	}
	if err := e.pending.Add(pending); err != nil {
		return err
	}
	e.emit(domain.ProposalEvent{
		RequestID:     req.ID,
		Protocol:      e.proto.Name,
		PeerPublicKey: peer,
		Account:       params.Account,
		Payload:       params.Payload,
	})
	return nil
}

func (e *Engine) onMessage(req domain.InboundRequest) error {
	rec, ok, err := e.relationships.Load(req.Topic)
	if err != nil {
		return err
	}
	if !ok || rec.State != domain.StateActive {
		return fmt.Errorf("%w: %s", domain.ErrRelationshipNotActive, req.Topic)
	}
	var params messageParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return fmt.Errorf("malformed message params: %w", err)
	}
	if err := e.router.RespondWithSuccess(e.ctx, req.ID, req.Topic, true); err != nil {
		e.logger.Warn("message ack not delivered",
			zap.Int64("id", int64(req.ID)), zap.Error(err))
	}
	e.emit(domain.MessageEvent{Topic: req.Topic, Payload: params.Payload})
	return nil
}

func (e *Engine) onDelete(req domain.InboundRequest) error {
	unlock := e.locks.Lock("topic:" + req.Topic.String())
	defer unlock()

	rec, ok, err := e.relationships.Load(req.Topic)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var params deleteParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return fmt.Errorf("malformed delete params: %w", err)
	}
	if err := e.router.RespondWithSuccess(e.ctx, req.ID, req.Topic, true); err != nil {
		e.logger.Warn("delete ack not delivered",
			zap.Int64("id", int64(req.ID)), zap.Error(err))
	}
	if err := e.gateway.Unsubscribe(e.ctx, req.Topic); err != nil {
		e.logger.Warn("unsubscribe failed", zap.String("topic", req.Topic.String()), zap.Error(err))
	}
	_ = e.relationships.Delete(req.Topic)
	_ = e.keys.RemoveTopicKeys(req.Topic)
	_ = e.keys.RemoveKeyPair(rec.SelfPublicKey)

	e.emit(domain.DeletionEvent{Topic: req.Topic, Reason: params.Message})
	return nil
}

// onProposalResponse settles an outbound proposal. An error response
// tears the half-open relationship down; a result carries the peer's
// fresh key, from which the long-lived channel topic is derived.
func (e *Engine) onProposalResponse(resp domain.InboundResponse) error {
	rec, ok, err := e.relationships.LoadByRequestID(resp.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrUnknownRequestID, resp.ID)
	}

	unlock := e.locks.Lock("topic:" + rec.Topic.String())
	defer unlock()

	if rec.State == domain.StateProposed && e.clk.Now().Sub(rec.CreatedAt) > e.proto.ProposalTTL {
		rec.State = domain.StateExpired
		rec.UpdatedAt = e.clk.Now()
		if err := e.relationships.Save(rec); err != nil {
			return err
		}
		if err := e.gateway.Unsubscribe(e.ctx, rec.Topic); err != nil {
			e.logger.Warn("unsubscribe failed", zap.String("topic", rec.Topic.String()), zap.Error(err))
		}
		_ = e.keys.RemoveTopicKeys(rec.Topic)
		e.logger.Info("discarding response to expired proposal", zap.Int64("id", int64(resp.ID)))
		return nil
	}

	if resp.IsError() {
		rec.State = domain.StateRejected
		rec.UpdatedAt = e.clk.Now()
		if err := e.relationships.Save(rec); err != nil {
			return err
		}
		if err := e.gateway.Unsubscribe(e.ctx, rec.Topic); err != nil {
			e.logger.Warn("unsubscribe failed", zap.String("topic", rec.Topic.String()), zap.Error(err))
		}
		_ = e.keys.RemoveTopicKeys(rec.Topic)
		e.emit(domain.RejectionEvent{RequestID: resp.ID, Reason: resp.Error.Message})
		return nil
	}

	var params acceptParams
	if err := json.Unmarshal(resp.Result, &params); err != nil {
		return fmt.Errorf("malformed acceptance result: %w", err)
	}
	peerFresh, err := domain.ParsePublicKey(params.PublicKey)
	if err != nil {
		return err
	}

	channelKey, err := e.keys.DeriveSharedKey(rec.SelfPublicKey, peerFresh)
	if err != nil {
		return err
	}
	activeTopic := e.keys.TopicFor(channelKey.Hex())
	if err := e.keys.BindSymmetricKey(activeTopic, channelKey); err != nil {
		return err
	}
	if err := e.gateway.Subscribe(e.ctx, activeTopic); err != nil {
		_ = e.keys.RemoveTopicKeys(activeTopic)
		return err
	}

	responseTopic := rec.Topic
	rec.Topic = activeTopic
	rec.PeerPublicKey = peerFresh
	rec.State = domain.StateActive
	rec.UpdatedAt = e.clk.Now()
	if err := e.relationships.Save(rec); err != nil {
		_ = e.gateway.Unsubscribe(e.ctx, activeTopic)
		_ = e.keys.RemoveTopicKeys(activeTopic)
		return err
	}
	if err := e.relationships.Delete(responseTopic); err != nil {
		e.logger.Warn("stale record cleanup failed", zap.String("topic", responseTopic.String()), zap.Error(err))
	}
	if err := e.gateway.Unsubscribe(e.ctx, responseTopic); err != nil {
		e.logger.Warn("unsubscribe failed", zap.String("topic", responseTopic.String()), zap.Error(err))
	}
	_ = e.keys.RemoveTopicKeys(responseTopic)

	e.emit(domain.AcceptanceEvent{RequestID: resp.ID, Topic: activeTopic})
	return nil
}

// resubscribe re-establishes relay subscriptions after a reconnect:
// every proposed or active topic plus the identity topic, in one batch.
func (e *Engine) resubscribe() error {
	recs, err := e.relationships.List()
	if err != nil {
		return err
	}
	var topics []domain.Topic
	for _, rec := range recs {
		switch rec.State {
		case domain.StateProposed, domain.StateActive:
			topics = append(topics, rec.Topic)
		}
	}
	identity, ok, err := e.keys.IdentityKey()
	if err != nil {
		return err
	}
	if ok {
		topics = append(topics, e.keys.TopicFor(identity.Hex()))
	}
	if len(topics) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(e.ctx, resubscribeTimeout)
	defer cancel()
	return e.gateway.BatchSubscribe(ctx, topics)
}
