package catalog

import (
	"context"
	"fmt"

	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/internal/protocol/rpc"
	"github.com/marmos91/dittogrid/internal/protocol/tag"
	"github.com/marmos91/dittogrid/pkg/query"
	"github.com/marmos91/dittogrid/pkg/session"
)

var testAccount = session.Account{Host: "localhost", Port: 1247, Zone: "zoneA", User: "alice"}

type specCollReply struct {
	body *tag.Tag
	err  error
}

// fakeClient answers stat calls from a path table and special collection
// queries from a scripted reply list.
type fakeClient struct {
	stats     map[string]packinstr.ObjStat
	statErrs  map[string]error
	specColl  []specCollReply
	props     session.ServerProperties
	propsErr  error
	statCalls []string
	specReqs  []packinstr.SpecCollQuery
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		stats:    map[string]packinstr.ObjStat{},
		statErrs: map[string]error{},
		props:    session.NewServerProperties("rods4.2.11", "d", "zoneA"),
	}
}

func (f *fakeClient) Account() session.Account {
	return testAccount
}

func (f *fakeClient) ServerProperties(context.Context) (session.ServerProperties, error) {
	return f.props, f.propsErr
}

func (f *fakeClient) Call(_ context.Context, api int32, request *tag.Tag) (*tag.Tag, error) {
	switch api {
	case rpc.APIObjStat:
		path := packinstr.ObjStatPath(request)
		f.statCalls = append(f.statCalls, path)
		if err, ok := f.statErrs[path]; ok {
			return nil, err
		}
		stat, ok := f.stats[path]
		if !ok {
			return nil, &session.StatusError{API: api, Status: rpc.StatusUserFileDoesNotExist}
		}
		return stat.Tag(), nil

	case rpc.APIQuerySpecColl:
		q, err := packinstr.ParseQuerySpecCollRequest(request)
		if err != nil {
			return nil, err
		}
		i := len(f.specReqs)
		f.specReqs = append(f.specReqs, q)
		if i >= len(f.specColl) {
			return nil, &session.StatusError{API: api, Status: rpc.StatusNoRowsFound}
		}
		return f.specColl[i].body, f.specColl[i].err
	}

	return nil, fmt.Errorf("unexpected api %d", api)
}

type executed struct {
	query  *query.Query
	offset int
	zone   string
}

// fakeExecutor returns scripted result sets in order.
type fakeExecutor struct {
	results []*query.ResultSet
	errs    []error
	calls   []executed
}

func (f *fakeExecutor) Execute(_ context.Context, q *query.Query, offset int, zone string) (*query.ResultSet, error) {
	i := len(f.calls)
	f.calls = append(f.calls, executed{query: q, offset: offset, zone: zone})

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return &query.ResultSet{}, nil
}

// resultSet builds a page of rows numbered from offset+1.
func resultSet(offset, total int, last bool, rows ...map[query.Field]string) *query.ResultSet {
	rs := &query.ResultSet{TotalRecords: total, HasMore: !last}
	for i, values := range rows {
		rs.Rows = append(rs.Rows, query.NewRow(values, offset+i+1, last && i == len(rows)-1))
	}
	return rs
}

func collectionStat(owner string) packinstr.ObjStat {
	return packinstr.ObjStat{
		Type:       packinstr.ObjTypeCollection,
		OwnerName:  owner,
		OwnerZone:  "zoneA",
		CreateTime: "01379087283",
		ModifyTime: "01379087290",
	}
}

func newTestService(client *fakeClient, executor *fakeExecutor, opts Options) *Service {
	return NewService(client, executor, opts, nil)
}
