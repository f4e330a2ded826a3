package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"rectifier-sim/internal/rectifier"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const deviceName = "rectifier"

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
}

// Status is the retained JSON document published after every run.
type Status struct {
	Timestamp  time.Time            `json:"timestamp"`
	Parameters rectifier.Parameters `json:"parameters"`
	Derived    rectifier.Derived    `json:"derived"`
	Metrics    rectifier.Metrics    `json:"metrics"`
	Warnings   []string             `json:"warnings,omitempty"`
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false, topicPrefix: cfg.TopicPrefix}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Println("MQTT connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		enabled:     true,
	}, nil
}

// metricPayloads maps each per-metric topic suffix to its payload.
func metricPayloads(res *rectifier.Result) map[string]string {
	m := res.Metrics
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

	efficiency := "unknown"
	if m.EfficiencyKnown() {
		efficiency = f(m.Efficiency * 100)
	}

	return map[string]string{
		"mode":                  res.Parameters.Mode.String(),
		"input_power":           f(m.InputPower),
		"load_power":            f(m.LoadPower),
		"efficiency":            efficiency,
		"dc_voltage":            f(m.DCVoltage),
		"ripple":                f(m.RipplePeakToPeak),
		"diode_current_rms":     f(m.DiodeCurrentRMS),
		"secondary_rms_voltage": f(res.Derived.SecondaryRMSVoltage),
		"winding_resistance":    f(res.Derived.SecondaryWindingResistance),
	}
}

func (p *Publisher) topic(name string) string {
	return fmt.Sprintf("%s/%s/%s", p.topicPrefix, deviceName, name)
}

func (p *Publisher) Publish(res *rectifier.Result) error {
	if !p.enabled {
		return nil
	}

	// Publish individual values
	for name, payload := range metricPayloads(res) {
		topic := p.topic(name)
		token := p.client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("Failed to publish to %s: %v", topic, token.Error())
		}
	}

	// Publish full status as JSON
	statusJSON, err := json.Marshal(Status{
		Timestamp:  time.Now(),
		Parameters: res.Parameters,
		Derived:    res.Derived,
		Metrics:    res.Metrics,
		Warnings:   res.Warnings,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	token := p.client.Publish(p.topic("status"), 0, true, statusJSON)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish status: %w", token.Error())
	}

	return nil
}

type sensor struct {
	Name        string
	ID          string
	Unit        string
	DeviceClass string
}

var sensors = []sensor{
	{"Input Power", "input_power", "W", "power"},
	{"Load Power", "load_power", "W", "power"},
	{"Efficiency", "efficiency", "%", ""},
	{"DC Voltage", "dc_voltage", "V", "voltage"},
	{"Ripple", "ripple", "V", "voltage"},
	{"Diode Current RMS", "diode_current_rms", "A", "current"},
	{"Secondary Voltage RMS", "secondary_rms_voltage", "V", "voltage"},
}

// discoveryConfig builds the Home Assistant discovery document of s.
func (p *Publisher) discoveryConfig(s sensor) map[string]interface{} {
	config := map[string]interface{}{
		"name":                fmt.Sprintf("Rectifier %s", s.Name),
		"unique_id":           fmt.Sprintf("rectifier_sim_%s", s.ID),
		"state_topic":         p.topic(s.ID),
		"unit_of_measurement": s.Unit,
		"device": map[string]interface{}{
			"identifiers":  []string{"rectifier_sim"},
			"name":         "Rectifier Simulator",
			"manufacturer": "rectifier-sim",
			"model":        "RC rectifier bench",
		},
	}
	if s.DeviceClass != "" {
		config["device_class"] = s.DeviceClass
	}
	return config
}

func (p *Publisher) PublishHomeAssistantDiscovery() error {
	if !p.enabled {
		return nil
	}

	for _, s := range sensors {
		discoveryTopic := fmt.Sprintf("homeassistant/sensor/rectifier_sim/%s/config", s.ID)
		payload, err := json.Marshal(p.discoveryConfig(s))
		if err != nil {
			return err
		}
		token := p.client.Publish(discoveryTopic, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("failed to publish discovery for %s: %w", s.ID, token.Error())
		}
	}

	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
