package gm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Vendor service names, resolved relative to the vendor base URL.
const (
	serviceVehicleInfo    = "getVehicleInfoService"
	serviceSecurityStatus = "getSecurityStatusService"
	serviceEnergy         = "getEnergyService"
	serviceEngineAction   = "actionEngineService"
)

const responseTypeJSON = "JSON"

// Vendor engine command vocabulary.
const (
	commandStartVehicle = "START_VEHICLE"
	commandStopVehicle  = "STOP_VEHICLE"
	actionExecuted      = "EXECUTED"
)

type vendorRequest struct {
	ID           string `json:"id"`
	ResponseType string `json:"responseType"`
	Command      string `json:"command,omitempty"`
}

// vendorStatus accepts the envelope status as either a JSON string ("200") or a number.
type vendorStatus int

func (s *vendorStatus) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if text == "" || text == "null" {
		*s = 0
		return nil
	}
	code, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("invalid status %s", data)
	}
	*s = vendorStatus(code)
	return nil
}

// envelope holds the fields common to every vendor reply.
type envelope struct {
	Service string       `json:"service"`
	Status  vendorStatus `json:"status"`
	Reason  string       `json:"reason"`
}

// code returns the vendor status, treating an absent status as success.
func (e *envelope) code() int {
	if e.Status == 0 {
		return http.StatusOK
	}
	return int(e.Status)
}

// typedValue is the vendor's encoding of a scalar: {"type": "Boolean", "value": "True"}.
type typedValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (v *typedValue) isNull() bool {
	return strings.EqualFold(v.Type, "Null") || strings.EqualFold(v.Value, "null") || v.Value == ""
}

func (v *typedValue) boolean() (bool, error) {
	switch strings.ToLower(v.Value) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("expected boolean, got '%s'", v.Value)
}

func (v *typedValue) number() (*float64, error) {
	if v.isNull() {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v.Value, 64)
	if err != nil {
		return nil, fmt.Errorf("expected number, got '%s'", v.Value)
	}
	return &n, nil
}

type vehicleInfoReply struct {
	envelope
	Data *struct {
		VIN           typedValue `json:"vin"`
		Color         typedValue `json:"color"`
		FourDoorSedan typedValue `json:"fourDoorSedan"`
		TwoDoorCoupe  typedValue `json:"twoDoorCoupe"`
		DriveTrain    typedValue `json:"driveTrain"`
	} `json:"data"`
}

type doorReply struct {
	Location typedValue `json:"location"`
	Locked   typedValue `json:"locked"`
}

type securityStatusReply struct {
	envelope
	Data *struct {
		Doors struct {
			Type   string      `json:"type"`
			Values []doorReply `json:"values"`
		} `json:"doors"`
	} `json:"data"`
}

type energyReply struct {
	envelope
	Data *struct {
		TankLevel    typedValue `json:"tankLevel"`
		BatteryLevel typedValue `json:"batteryLevel"`
	} `json:"data"`
}

type engineActionReply struct {
	envelope
	ActionResult *struct {
		Status string `json:"status"`
	} `json:"actionResult"`
}

func decodeReply(body []byte, reply interface{}) error {
	if err := json.Unmarshal(body, reply); err != nil {
		return fmt.Errorf("unable to parse vendor response: %w", err)
	}
	return nil
}
