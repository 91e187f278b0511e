// Command ktverify is a thin demonstration harness for the keytrans
// package: given a configuration file describing a log's deployment and
// a JSON-encoded server response captured from elsewhere, it runs the
// library's verification and reports the outcome. It does not implement
// a transport to fetch responses itself, network access is left entirely
// to the caller, matching keytrans's requirement of performing no I/O of
// its own.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Bren2010/ktverify/keytrans"
	"github.com/Bren2010/ktverify/storage"
)

var (
	configFile = flag.String("config", "", "Location of config file.")
	aciHex     = flag.String("aci", "", "Account identifier of the response being verified.")
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ktverify -config <config.yaml> -aci <aci> search|monitor <response.json>")
	os.Exit(2)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile | log.LUTC)
	flag.Parse()

	if *configFile == "" {
		log.Fatalf("No config file provided, see --help.")
	} else if *aciHex == "" {
		log.Fatalf("No account identifier provided, see --help.")
	} else if flag.NArg() != 2 {
		usage()
	}

	cfg, err := ReadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	store, err := storage.Open(cfg.StoragePath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	go serveMetrics(cfg.MetricsAddr)

	aci := []byte(*aciHex)
	raw, err := os.ReadFile(flag.Arg(1))
	if err != nil {
		log.Fatalf("Failed to read response file: %v", err)
	}

	now := time.Now().UnixMilli()

	switch flag.Arg(0) {
	case "search":
		err = runSearch(cfg, store, aci, raw, now)
	case "monitor":
		err = runMonitor(cfg, store, aci, raw, now)
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}
	fmt.Println("ok")
}

func runSearch(cfg *Config, store *storage.Store, aci, raw []byte, now int64) error {
	var payload struct {
		Request  keytrans.SlimSearchRequest  `json:"request"`
		Response keytrans.FullSearchResponse `json:"response"`
		Owned    bool                        `json:"owned"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		recordOutcome(searchVerifications, err)
		return err
	}

	account, keys, data, err := store.GetAccount(aci)
	if err != nil {
		return err
	}
	distinguished, err := store.GetDistinguished()
	if err != nil {
		return err
	}

	var last *keytrans.LastTreeHead
	if account != nil {
		last = account.LastTreeHead
	}
	var searchData *keytrans.MonitoringData
	for i, k := range keys {
		if k == string(payload.Request.SearchKey) {
			searchData = data[i]
		}
	}

	ctx := keytrans.SearchContext{
		LastTreeHead:              last,
		LastDistinguishedTreeHead: distinguished,
		Data:                      searchData,
	}
	update, err := keytrans.VerifySearch(cfg.public, payload.Request, payload.Response, ctx, payload.Owned, now)
	recordOutcome(searchVerifications, err)
	if err != nil {
		return err
	}

	pinned := &keytrans.LastTreeHead{TreeHead: update.TreeHead, TreeRoot: update.TreeRoot}
	if string(payload.Request.SearchKey) == "distinguished" {
		if err := store.PutDistinguished(pinned); err != nil {
			return err
		}
	}

	if account == nil {
		account = &keytrans.AccountData{ACI: aci}
	}
	account.LastTreeHead = pinned
	if update.MonitoringData != nil {
		replaced := false
		for i, k := range keys {
			if k == string(payload.Request.SearchKey) {
				data[i] = update.MonitoringData
				replaced = true
			}
		}
		if !replaced {
			keys = append(keys, string(payload.Request.SearchKey))
			data = append(data, update.MonitoringData)
		}
	}
	return store.PutAccount(*account, keys, data)
}

func runMonitor(cfg *Config, store *storage.Store, aci, raw []byte, now int64) error {
	var payload struct {
		Request  keytrans.MonitorRequest  `json:"request"`
		Response keytrans.MonitorResponse `json:"response"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		recordOutcome(monitorVerifications, err)
		return err
	}

	account, keys, data, err := store.GetAccount(aci)
	if err != nil {
		return err
	}
	distinguished, err := store.GetDistinguished()
	if err != nil {
		return err
	}
	var last *keytrans.LastTreeHead
	if account != nil {
		last = account.LastTreeHead
	}

	monitorData := make([]*keytrans.MonitoringData, len(payload.Request.Keys))
	for i, key := range payload.Request.Keys {
		for j, k := range keys {
			if k == string(key.SearchKey) {
				monitorData[i] = data[j]
			}
		}
	}

	ctx := keytrans.MonitorContext{
		LastTreeHead:              last,
		LastDistinguishedTreeHead: distinguished,
		Data:                      monitorData,
	}
	update, err := keytrans.VerifyMonitor(cfg.public, payload.Request, payload.Response, ctx, now)
	recordOutcome(monitorVerifications, err)
	if err != nil {
		return err
	}

	if account == nil {
		account = &keytrans.AccountData{ACI: aci}
	}
	account.LastTreeHead = &keytrans.LastTreeHead{TreeHead: update.TreeHead, TreeRoot: update.TreeRoot}
	for i, key := range payload.Request.Keys {
		replaced := false
		for j, k := range keys {
			if k == string(key.SearchKey) {
				data[j] = update.MonitoringData[i]
				replaced = true
			}
		}
		if !replaced {
			keys = append(keys, string(key.SearchKey))
			data = append(data, update.MonitoringData[i])
		}
	}
	return store.PutAccount(*account, keys, data)
}
