// Package gmtest provides an in-process imitation of the GM vendor API. It is used by tests and by
// cmd/gm-simulator for running the proxy without network access to GM.
package gmtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Vehicle is the ground truth the simulator reports for one vehicle id.
type Vehicle struct {
	VIN        string
	Color      string
	FourDoor   bool
	TwoDoor    bool
	DriveTrain string
	Doors      map[string]bool
	// TankLevel and BatteryLevel are nil for vehicles without that energy source.
	TankLevel    *float64
	BatteryLevel *float64
	// EngineResult is returned as actionResult.status, e.g. "EXECUTED" or "FAILED".
	EngineResult string
}

func level(v float64) *float64 {
	return &v
}

// DefaultVehicles mirrors the fixtures served by the public GM API.
func DefaultVehicles() map[string]Vehicle {
	return map[string]Vehicle{
		"1234": {
			VIN:        "123123412412",
			Color:      "Metallic Silver",
			FourDoor:   true,
			DriveTrain: "v8",
			Doors: map[string]bool{
				"frontLeft":  false,
				"frontRight": true,
				"backLeft":   false,
				"backRight":  true,
			},
			TankLevel:    level(30.2),
			EngineResult: "EXECUTED",
		},
		"1235": {
			VIN:        "1235AZ91XP",
			Color:      "Forest Green",
			TwoDoor:    true,
			DriveTrain: "electric",
			Doors: map[string]bool{
				"frontLeft":  true,
				"frontRight": true,
			},
			BatteryLevel: level(73.2),
			EngineResult: "FAILED",
		},
	}
}

// Request is a vendor request as received by the simulator.
type Request struct {
	Service      string `json:"-"`
	ID           string `json:"id"`
	ResponseType string `json:"responseType"`
	Command      string `json:"command"`
}

// Server imitates the GM API.
type Server struct {
	// Delay, if set, is called for every request and the reply is held back for the returned
	// duration.
	Delay func(req Request) time.Duration

	lock     sync.Mutex
	vehicles map[string]Vehicle
	requests []Request
}

// NewServer returns a Server populated with DefaultVehicles.
func NewServer() *Server {
	return &Server{vehicles: DefaultVehicles()}
}

// Start serves s on a loopback listener. Callers must Close the returned server.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s.Handler())
}

// AddVehicle registers or replaces a vehicle.
func (s *Server) AddVehicle(id string, v Vehicle) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.vehicles[id] = v
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestCount returns the number of requests received for service.
func (s *Server) RequestCount(service string) int {
	count := 0
	for _, req := range s.Requests() {
		if req.Service == service {
			count++
		}
	}
	return count
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/getVehicleInfoService/", s.serve(vehicleInfo))
	r.Post("/getSecurityStatusService/", s.serve(securityStatus))
	r.Post("/getEnergyService/", s.serve(energy))
	r.Post("/actionEngineService/", s.serve(engineAction))
	return r
}

type replyFunc func(req Request, v Vehicle) map[string]interface{}

func (s *Server) serve(reply replyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		body, err := io.ReadAll(r.Body)
		if err == nil {
			err = json.Unmarshal(body, &req)
		}
		if err != nil {
			http.Error(w, "malformed request", http.StatusBadRequest)
			return
		}
		req.Service = strings.Trim(r.URL.Path, "/")

		s.lock.Lock()
		s.requests = append(s.requests, req)
		v, ok := s.vehicles[req.ID]
		delay := s.Delay
		s.lock.Unlock()

		if delay != nil {
			select {
			case <-time.After(delay(req)):
			case <-r.Context().Done():
				return
			}
		}

		var response map[string]interface{}
		if ok {
			response = reply(req, v)
			response["status"] = "200"
		} else {
			response = map[string]interface{}{
				"status": "404",
				"reason": fmt.Sprintf("Vehicle id: %s not found.", req.ID),
			}
		}
		response["service"] = strings.TrimSuffix(req.Service, "Service")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

func typed(kind, value string) map[string]string {
	return map[string]string{"type": kind, "value": value}
}

func boolean(b bool) map[string]string {
	if b {
		return typed("Boolean", "True")
	}
	return typed("Boolean", "False")
}

func number(n *float64) map[string]string {
	if n == nil {
		return typed("Null", "null")
	}
	return typed("Number", strconv.FormatFloat(*n, 'f', -1, 64))
}

func vehicleInfo(_ Request, v Vehicle) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"vin":           typed("String", v.VIN),
			"color":         typed("String", v.Color),
			"fourDoorSedan": boolean(v.FourDoor),
			"twoDoorCoupe":  boolean(v.TwoDoor),
			"driveTrain":    typed("String", v.DriveTrain),
		},
	}
}

func securityStatus(_ Request, v Vehicle) map[string]interface{} {
	var doors []map[string]interface{}
	for location, locked := range v.Doors {
		doors = append(doors, map[string]interface{}{
			"location": typed("String", location),
			"locked":   boolean(locked),
		})
	}
	return map[string]interface{}{
		"data": map[string]interface{}{
			"doors": map[string]interface{}{
				"type":   "Array",
				"values": doors,
			},
		},
	}
}

func energy(_ Request, v Vehicle) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"tankLevel":    number(v.TankLevel),
			"batteryLevel": number(v.BatteryLevel),
		},
	}
}

func engineAction(req Request, v Vehicle) map[string]interface{} {
	status := v.EngineResult
	if req.Command != "START_VEHICLE" && req.Command != "STOP_VEHICLE" {
		status = "FAILED"
	}
	return map[string]interface{}{
		"actionResult": map[string]string{"status": status},
	}
}
