// Package all links every built-in format into the codec registries.
//
//	import _ "github.com/ajitpratap0/rowstream/pkg/codec/all"
package all

import (
	_ "github.com/ajitpratap0/rowstream/pkg/codec/arrow"
	_ "github.com/ajitpratap0/rowstream/pkg/codec/avro"
	_ "github.com/ajitpratap0/rowstream/pkg/codec/bson"
	_ "github.com/ajitpratap0/rowstream/pkg/codec/csv"
	_ "github.com/ajitpratap0/rowstream/pkg/codec/json"
	_ "github.com/ajitpratap0/rowstream/pkg/codec/msgpack"
	_ "github.com/ajitpratap0/rowstream/pkg/codec/ndjson"
)
