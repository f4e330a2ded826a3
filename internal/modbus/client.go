package modbus

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/simonvetter/modbus"
)

type Client struct {
	client  *modbus.ModbusClient
	mu      sync.Mutex
	url     string
	unitID  uint8
	timeout time.Duration
}

func NewClient(url string, unitID uint8, timeout time.Duration) *Client {
	return &Client{
		url:     url,
		unitID:  unitID,
		timeout: timeout,
	}
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     c.url,
		Timeout: c.timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create modbus client: %w", err)
	}

	if err := client.Open(); err != nil {
		return fmt.Errorf("failed to connect to instrument: %w", err)
	}

	client.SetUnitId(c.unitID)
	c.client = client

	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

func (c *Client) ReadInputRegisters(address uint16, quantity uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	regs, err := c.client.ReadRegisters(address, quantity, modbus.INPUT_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("failed to read input registers at %d: %w", address, err)
	}

	return regs, nil
}

func (c *Client) ReadUint16(address uint16) (uint16, error) {
	regs, err := c.ReadInputRegisters(address, 1)
	if err != nil {
		return 0, err
	}
	return regs[0], nil
}

func (c *Client) ReadUint32(address uint16) (uint32, error) {
	regs, err := c.ReadInputRegisters(address, 2)
	if err != nil {
		return 0, err
	}
	return DecodeUint32(regs), nil
}

func (c *Client) ReadFloat32(address uint16) (float32, error) {
	regs, err := c.ReadInputRegisters(address, 2)
	if err != nil {
		return 0, err
	}
	return DecodeFloat32(regs), nil
}

func (c *Client) Reconnect() error {
	c.Close()
	return c.Connect()
}

// Values wider than one register are sent high word first.

func EncodeUint32(v uint32) []uint16 {
	return []uint16{uint16(v >> 16), uint16(v)}
}

func DecodeUint32(regs []uint16) uint32 {
	return uint32(regs[0])<<16 | uint32(regs[1])
}

func EncodeFloat32(v float32) []uint16 {
	return EncodeUint32(math.Float32bits(v))
}

func DecodeFloat32(regs []uint16) float32 {
	return math.Float32frombits(DecodeUint32(regs))
}
