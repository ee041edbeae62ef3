package packinstr

import (
	"fmt"

	"github.com/marmos91/dittogrid/internal/protocol/tag"
)

// ServerInfo mirrors MiscSvrInfo_PI.
type ServerInfo struct {
	ServerType     int
	ServerBootTime int64
	ReleaseVersion string
	APIVersion     string
	Zone           string
}

// Tag renders MiscSvrInfo_PI.
func (s ServerInfo) Tag() *tag.Tag {
	return tag.New("MiscSvrInfo_PI",
		tag.NewValue("serverType", s.ServerType),
		tag.NewValue("serverBootTime", s.ServerBootTime),
		tag.NewValue("relVersion", s.ReleaseVersion),
		tag.NewValue("apiVersion", s.APIVersion),
		tag.NewValue("rodsZone", s.Zone),
	)
}

// ParseServerInfo decodes MiscSvrInfo_PI.
func ParseServerInfo(t *tag.Tag) (ServerInfo, error) {
	if t == nil {
		return ServerInfo{}, fmt.Errorf("missing MiscSvrInfo_PI")
	}

	serverType, err := t.ChildInt("serverType")
	if err != nil {
		return ServerInfo{}, fmt.Errorf("MiscSvrInfo_PI: %w", err)
	}
	bootTime, err := t.ChildInt64("serverBootTime")
	if err != nil {
		return ServerInfo{}, fmt.Errorf("MiscSvrInfo_PI: %w", err)
	}

	return ServerInfo{
		ServerType:     serverType,
		ServerBootTime: bootTime,
		ReleaseVersion: t.Tag("relVersion").StringValue(),
		APIVersion:     t.Tag("apiVersion").StringValue(),
		Zone:           t.Tag("rodsZone").StringValue(),
	}, nil
}
