package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"slices"

	"github.com/fatih/structs"
	"github.com/scitags/go-nflog/nflog"
	"github.com/scitags/go-nflog/processing/packet"
)

// printer is the nflog.Handler reporting every logged packet.
type printer struct {
	conf    OutputConfig
	decoder *packet.Decoder
	enc     *json.Encoder
}

type printedRecord struct {
	Record nflog.Record `json:"record"`
	Packet *packet.Info `json:"packet,omitempty"`
}

func newPrinter(conf OutputConfig, w io.Writer) *printer {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &printer{conf: conf, decoder: packet.NewDecoder(), enc: enc}
}

func (p *printer) Handle(m *nflog.Message) error {
	if p.conf.Format == "none" {
		return nil
	}

	rec := m.Record()

	var info *packet.Info
	if p.conf.Decode && rec.Payload != nil {
		var err error
		info, err = p.decoder.Decode(rec.Payload)
		if err != nil {
			slog.Debug("couldn't decode the payload", "err", err)
		}
	}

	switch p.conf.Format {
	case "json":
		return p.enc.Encode(printedRecord{Record: rec, Packet: info})
	default:
		slog.Info("packet logged", recordAttrs(rec, info)...)
	}

	return nil
}

// recordAttrs flattens a record into slog attributes, sorted by key. Raw
// bytes are left out in favour of their lengths.
func recordAttrs(rec nflog.Record, info *packet.Info) []any {
	m := structs.Map(rec)

	if p, ok := m["payload"].([]byte); ok {
		delete(m, "payload")
		m["payloadLen"] = len(p)
	}
	if h, ok := m["hwHeader"].([]byte); ok {
		delete(m, "hwHeader")
		m["hwHeaderLen"] = len(h)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	attrs := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		v := m[k]
		if p, ok := v.(*uint32); ok {
			if p == nil {
				continue
			}
			v = *p
		}
		attrs = append(attrs, slog.Any(k, v))
	}

	if info != nil {
		attrs = append(attrs, slog.Group("packet",
			"version", info.Version,
			"src", info.Src,
			"dst", info.Dst,
			"protocol", info.Protocol,
			"ttl", info.TTL,
			"length", info.Length,
			"srcPort", info.SrcPort,
			"dstPort", info.DstPort,
		))
	}

	return attrs
}
