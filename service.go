package main

import (
	"net"
	"net/http"

	"github.com/gorilla/rpc"
	jsonrpc "github.com/gorilla/rpc/json"
	"github.com/rcrowley/go-metrics"

	"github.com/mempooltools/mempoolctl/estimate"
	"github.com/mempooltools/mempoolctl/fees"
)

type Service struct {
	Watcher *Watcher
	DLog    *DebugLog
	Cfg     config
}

func (s *Service) ListenAndServe() error {
	var methods = map[string]string{
		"stop":       "Service.Stop",
		"status":     "Service.Status",
		"fees":       "Service.Fees",
		"feearray":   "Service.FeeArray",
		"halving":    "Service.Halving",
		"difficulty": "Service.Difficulty",
		"history":    "Service.History",
		"setdebug":   "Service.SetDebug",
		"config":     "Service.Config",
		"metrics":    "Service.Metrics",
	}
	srv := rpc.NewServer()
	srv.RegisterCodec(jsonrpc.NewCodec(), "application/json")
	srv.RegisterService(s, "")
	srv.RegisterCustomNames(methods)
	http.Handle("/", srv)
	addr := net.JoinHostPort(s.Cfg.AppRPC.Host, s.Cfg.AppRPC.Port)
	s.DLog.Logger.Println("RPC server listening on", addr)
	return http.ListenAndServe(addr, nil)
}

func (s *Service) Stop(r *http.Request, args *struct{}, reply *struct{}) error {
	go s.Watcher.Stop()
	return nil
}

func (s *Service) Status(r *http.Request, args *struct{}, reply *map[string]string) error {
	*reply = s.Watcher.Status()
	return nil
}

func (s *Service) Fees(r *http.Request, args *struct{}, reply *fees.RecommendedFees) error {
	result, err := s.Watcher.Fees()
	if err != nil {
		return err
	}
	*reply = result
	return nil
}

func (s *Service) FeeArray(r *http.Request, args *struct{}, reply *map[string][]float64) error {
	lo, med, hi := s.Watcher.FeeArray()
	*reply = map[string][]float64{
		"min":    lo,
		"median": med,
		"max":    hi,
	}
	return nil
}

func (s *Service) Halving(r *http.Request, args *struct{}, reply *estimate.Halving) error {
	result, err := s.Watcher.Halving()
	if err != nil {
		return err
	}
	*reply = result
	return nil
}

func (s *Service) Difficulty(r *http.Request, args *struct{}, reply *estimate.DifficultyAdjustment) error {
	result, err := s.Watcher.Difficulty()
	if err != nil {
		return err
	}
	*reply = result
	return nil
}

// History returns the stored fee records since args (unix time). A zero or
// negative arg means the whole retained window.
func (s *Service) History(r *http.Request, args *int64, reply *[]fees.Record) error {
	records, err := s.Watcher.History(*args)
	if err != nil {
		return err
	}
	*reply = records
	return nil
}

func (s *Service) SetDebug(r *http.Request, args *bool, reply *bool) error {
	s.DLog.SetDebug(*args)
	*reply = *args
	return nil
}

func (s *Service) Config(r *http.Request, args *struct{}, reply *interface{}) error {
	*reply = s.Cfg
	return nil
}

func (s *Service) Metrics(r *http.Request, args *struct{}, reply *metrics.Registry) error {
	*reply = metrics.DefaultRegistry
	return nil
}
