package queue

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configures the MQTT capture sink, adapted from the
// corpus's MQTTConfig/MQTTTLSConfig pair.
type MQTTOptions struct {
	Broker   string
	Topic    string
	Username string
	Password string
	CAFile   string
	CertFile string
	KeyFile  string
}

// MQTTSink publishes capture records as JSON to an MQTT broker. It is a
// write-only sink: Get always reports empty, matching the corpus's
// MQTTPublisher (itself a publish-only client against a metrics
// broker).
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

// NewMQTTSink connects to the broker described by opts.
func NewMQTTSink(opts MQTTOptions) (*MQTTSink, error) {
	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(generateClientID())

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectRetryInterval(10 * time.Second)
	clientOpts.SetKeepAlive(60 * time.Second)
	clientOpts.SetPingTimeout(10 * time.Second)

	if opts.CAFile != "" || opts.CertFile != "" {
		tlsConfig, err := loadTLSConfig(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to load MQTT TLS config: %w", err)
		}
		clientOpts.SetTLSConfig(tlsConfig)
	}

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTSink{client: client, topic: opts.Topic}, nil
}

func generateClientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "voicescan_" + hex.EncodeToString(b)
}

func loadTLSConfig(opts MQTTOptions) (*tls.Config, error) {
	config := &tls.Config{}

	if opts.CAFile != "" {
		caCert, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		config.RootCAs = pool
	}

	if opts.CertFile != "" && opts.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}

// mqttPayload mirrors Record but carries iq_data as base64-free
// separate real/imag arrays, since JSON has no native complex type.
type mqttPayload struct {
	CenterFrequency float64   `json:"center_frequency"`
	SignalFrequency float64   `json:"signal_frequency"`
	PowerDB         float64   `json:"power_db"`
	Bandwidth       float64   `json:"bandwidth"`
	Timestamp       string    `json:"timestamp"`
	SampleRate      int       `json:"sample_rate"`
	IQReal          []float32 `json:"iq_real"`
	IQImag          []float32 `json:"iq_imag"`
}

// Put publishes rec as JSON on the configured topic.
func (s *MQTTSink) Put(ctx context.Context, rec Record) error {
	payload := mqttPayload{
		CenterFrequency: rec.CenterFrequency,
		SignalFrequency: rec.SignalFrequency,
		PowerDB:         rec.PowerDB,
		Bandwidth:       rec.Bandwidth,
		Timestamp:       rec.Timestamp,
		SampleRate:      rec.SampleRate,
		IQReal:          make([]float32, len(rec.IQData)),
		IQImag:          make([]float32, len(rec.IQData)),
	}
	for i, s := range rec.IQData {
		payload.IQReal[i] = real(s)
		payload.IQImag[i] = imag(s)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	token := s.client.Publish(s.topic, 0, false, data)
	token.Wait()
	return token.Error()
}

// Get is unsupported for a write-only sink.
func (s *MQTTSink) Get(ctx context.Context) (Record, bool, error) {
	return Record{}, false, nil
}

// Empty always reports true: there is nothing to drain client-side.
func (s *MQTTSink) Empty() bool { return true }

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}
