package stage

import (
	"github.com/e7canasta/stagecast/internal/executor"
)

// InfoTree is the JSON-serializable diagnostics snapshot returned by
// Info/InfoLayer/DelayInfo. It mirrors the handful of fields a real
// boost::property_tree dump of a channel and its layers would carry,
// flattened into a plain struct so callers get compile-time field access
// and a ready encoding/json tag set (see internal/core/health.go's
// HealthStatus for the ambient style this follows).
type InfoTree struct {
	ChannelIndex int         `json:"channel_index"`
	Layers       []LayerInfo `json:"layers,omitempty"`
}

// LayerInfo describes one layer's state for a diagnostics snapshot.
type LayerInfo struct {
	Index      int     `json:"index"`
	PlayState  string  `json:"play_state"`
	Foreground string  `json:"foreground"`
	Background string  `json:"background"`
	HasRoute   bool    `json:"has_route"`
	RouteCount int     `json:"route_count,omitempty"`
}

// Info returns a snapshot of every layer on the stage.
func (s *Stage) Info() (InfoTree, error) {
	v, err := s.exec.Invoke(executor.High, func() (any, error) {
		return s.infoLocked(), nil
	})
	if err != nil {
		return InfoTree{}, err
	}
	return v.(InfoTree), nil
}

// InfoLayer returns a snapshot limited to one layer index.
func (s *Stage) InfoLayer(index int) (InfoTree, error) {
	v, err := s.exec.Invoke(executor.High, func() (any, error) {
		return s.infoForLocked(index), nil
	})
	if err != nil {
		return InfoTree{}, err
	}
	return v.(InfoTree), nil
}

// DelayInfo is identical to Info but named separately because the
// original system exposes it as a distinct AMCP verb (queued rather than
// inline); here both resolve through the same executor task, so there is
// no behavioral difference worth duplicating.
func (s *Stage) DelayInfo() (InfoTree, error) {
	return s.Info()
}

// DelayInfoLayer is the per-layer counterpart to DelayInfo.
func (s *Stage) DelayInfoLayer(index int) (InfoTree, error) {
	return s.InfoLayer(index)
}

func (s *Stage) infoLocked() InfoTree {
	tree := InfoTree{ChannelIndex: s.channelIndex}
	for _, i := range s.activeIndices() {
		tree.Layers = append(tree.Layers, s.layerInfo(i))
	}
	return tree
}

func (s *Stage) infoForLocked(index int) InfoTree {
	tree := InfoTree{ChannelIndex: s.channelIndex}
	if _, hasLayer := s.layers[index]; hasLayer {
		tree.Layers = append(tree.Layers, s.layerInfo(index))
	} else if _, hasRoute := s.routes[index]; hasRoute {
		tree.Layers = append(tree.Layers, s.layerInfo(index))
	}
	return tree
}

func (s *Stage) layerInfo(index int) LayerInfo {
	info := LayerInfo{Index: index}
	if l, ok := s.layers[index]; ok {
		info.PlayState = l.State().String()
		info.Foreground = l.Foreground().Name()
		info.Background = l.Background().Name()
	} else {
		info.PlayState = "absent"
		info.Foreground = "empty"
		info.Background = "empty"
	}
	if routes, ok := s.routes[index]; ok {
		info.HasRoute = len(routes) > 0
		info.RouteCount = len(routes)
	}
	return info
}
