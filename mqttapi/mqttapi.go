package mqttapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/angas/solarquote-go/config"
	"github.com/angas/solarquote-go/quote"
)

// Request is one quote asked for over MQTT. The answer goes to ReplyTo when set,
// otherwise to the configured response topic.
type Request struct {
	Id        string               `json:"id"`
	ReplyTo   string               `json:"reply_to,omitempty"`
	Profile   quote.ProfileInput   `json:"profile"`
	Financing quote.FinancingTerms `json:"financing"`
}

// CodeInvalidRequest is returned for payloads that aren't a request at all.
const CodeInvalidRequest = "invalid_request"

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Response struct {
	Id       string       `json:"id"`
	Quote    *quote.Quote `json:"quote,omitempty"`
	Warnings []ErrorBody  `json:"warnings,omitempty"`
	Error    *ErrorBody   `json:"error,omitempty"`
}

type Calculator interface {
	Calculate(profile quote.ProfileInput, financing quote.FinancingTerms) (quote.Quote, error)
}

type Service struct {
	client        mqtt.Client
	logger        *slog.Logger
	calc          Calculator
	requestTopic  string
	responseTopic string
}

func New(cnfg config.AppConfigMqtt, calc Calculator) *Service {
	logger := slog.Default().With("module", "mqtt")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cnfg.Host, cnfg.Port))
	opts.SetClientID(cnfg.GetClientId())
	opts.SetUsername(cnfg.Username)
	opts.SetPassword(cnfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)

	s := &Service{
		logger:        logger,
		calc:          calc,
		requestTopic:  cnfg.GetRequestTopic(),
		responseTopic: cnfg.GetResponseTopic(),
	}

	// Subscriptions are lost with the connection, so they are renewed on every connect
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
		s.subscribe(client)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	installPahoLoggers(logger)
	s.client = mqtt.NewClient(opts)
	return s
}

func (s *Service) Connect() error {
	s.logger.Debug("connecting MQTT client")
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	return nil
}

func (s *Service) Disconnect() {
	s.client.Unsubscribe(s.requestTopic).WaitTimeout(time.Second)
	s.client.Disconnect(250)
	s.logger.Info("MQTT disconnected")
}

func (s *Service) subscribe(client mqtt.Client) {
	token := client.Subscribe(s.requestTopic, 1, func(client mqtt.Client, msg mqtt.Message) {
		topic, payload := s.handle(msg.Payload())
		t := client.Publish(topic, 1, false, payload)
		go func() {
			if t.WaitTimeout(5*time.Second) && t.Error() != nil {
				s.logger.Error("failed to publish quote", slog.String("topic", topic), slog.Any("error", t.Error()))
			}
		}()
	})
	if token.Wait() && token.Error() != nil {
		s.logger.Error("failed to subscribe", slog.String("topic", s.requestTopic), slog.Any("error", token.Error()))
		return
	}
	s.logger.Info("listening for quote requests", slog.String("topic", s.requestTopic))
}

// handle turns a request payload into the response topic and payload.
func (s *Service) handle(payload []byte) (string, []byte) {
	var req Request
	resp := Response{}
	topic := s.responseTopic

	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("invalid quote request", slog.Any("error", err))
		resp.Id = uuid.NewString()
		resp.Error = &ErrorBody{Code: CodeInvalidRequest, Message: err.Error()}
		if errors.Is(err, quote.ErrInvalidFinancingTerm) {
			resp.Error = errorBody(err)
		}
		return topic, marshal(resp)
	}

	resp.Id = req.Id
	if resp.Id == "" {
		resp.Id = uuid.NewString()
	}
	if req.ReplyTo != "" {
		topic = req.ReplyTo
	}

	q, err := s.calc.Calculate(req.Profile, req.Financing)
	if err != nil {
		s.logger.Info("quote request failed", slog.String("id", resp.Id), slog.Any("error", err))
		resp.Error = errorBody(err)
		return topic, marshal(resp)
	}

	resp.Quote = &q
	for _, w := range q.Warnings() {
		resp.Warnings = append(resp.Warnings, *errorBody(w))
	}
	s.logger.Debug("quote request answered", slog.String("id", resp.Id), slog.String("topic", topic))
	return topic, marshal(resp)
}

func errorBody(err error) *ErrorBody {
	return &ErrorBody{Code: quote.ErrorCode(err), Message: err.Error()}
}

func marshal(resp Response) []byte {
	b, err := json.Marshal(resp)
	if err != nil {
		// The engine rejects non finite quotes, so this is a bug
		b, _ = json.Marshal(Response{Id: resp.Id, Error: &ErrorBody{Code: quote.CodeInternal, Message: err.Error()}})
	}
	return b
}
