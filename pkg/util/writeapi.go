package util

import (
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/influxdata/influxdb-client-go/api/write"
)

var _ api.WriteAPI = (*DiscardWriteAPI)(nil)

// DiscardWriteAPI drops every point. Receivers use it until a real
// InfluxDB writer is configured.
type DiscardWriteAPI struct{}

func (*DiscardWriteAPI) WriteRecord(string)      {}
func (*DiscardWriteAPI) WritePoint(*write.Point) {}
func (*DiscardWriteAPI) Flush()                  {}
func (*DiscardWriteAPI) Close()                  {}
func (*DiscardWriteAPI) Errors() <-chan error    { return nil }
