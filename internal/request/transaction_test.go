package request

import (
	"errors"
	"testing"

	"github.com/perch-health/healthstore/pkg/types"
)

// fakeProvider is a minimal ReadRequestProvider for composition tests.
type fakeProvider struct {
	recordType string
	table      string
}

func (f *fakeProvider) RecordType() string { return f.recordType }

func (f *fakeProvider) ReadTableRequest(filter types.ReadFilter, callerPackage string,
	enforceSelfRead bool, historicalAccessStartMillis int64) (*ReadTableRequest, error) {
	return NewReadTableRequest(f.table).WithRecordType(f.recordType), nil
}

func (f *fakeProvider) ReadTableRequestByIDs(callerPackage string, uuids []string) *ReadTableRequest {
	return NewReadTableRequest(f.table).WithRecordType(f.recordType).
		WithWhere(NewWhereClauses(LogicalAnd).AddIn("uuid", uuids))
}

func TestNewReadTransactionRequest_SelfDataDetection(t *testing.T) {
	provider := &fakeProvider{recordType: types.RecordTypeSteps, table: "steps_record_table"}

	cases := []struct {
		name     string
		packages []string
		enforce  bool
		want     bool
	}{
		{"own package only", []string{"com.example.fit"}, false, true},
		{"other package", []string{"com.other.app"}, false, false},
		{"mixed packages", []string{"com.example.fit", "com.other.app"}, false, false},
		{"no package filter", nil, false, false},
		{"enforced self read", nil, true, true},
	}
	for _, c := range cases {
		filter := types.ReadFilter{RecordType: types.RecordTypeSteps, Packages: c.packages}
		req, err := NewReadTransactionRequest(provider, filter, "com.example.fit", c.enforce, 0)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if req.IsReadingSelfData() != c.want {
			t.Errorf("%s: IsReadingSelfData = %v, want %v", c.name, req.IsReadingSelfData(), c.want)
		}
	}
}

func TestNewReadTransactionRequest_UnknownTypeFails(t *testing.T) {
	_, err := NewReadTransactionRequest(nil, types.ReadFilter{RecordType: "bogus"}, "com.example.fit", false, 0)
	if !errors.Is(err, types.ErrUnknownRecordType) {
		t.Errorf("err = %v, want ErrUnknownRecordType", err)
	}
}

func TestNewReadTransactionRequest_PageTokenOverridesOrdering(t *testing.T) {
	provider := &fakeProvider{recordType: types.RecordTypeSteps, table: "steps_record_table"}
	encoded, err := PageToken{Ascending: true, TimeMillis: 500, Offset: 2}.Encode()
	if err != nil {
		t.Fatal(err)
	}

	filter := types.ReadFilter{
		RecordType: types.RecordTypeSteps,
		PageToken:  encoded,
		PageSize:   100,
		Ascending:  false, // contradicts the token; the token must win
	}
	req, err := NewReadTransactionRequest(provider, filter, "com.example.fit", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	token := req.PageToken()
	if token == nil || !token.Ascending || token.TimeMillis != 500 || token.Offset != 2 {
		t.Errorf("PageToken = %+v", token)
	}
	if req.PageSize() != 100 {
		t.Errorf("PageSize = %d, want 100", req.PageSize())
	}
}

func TestNewReadTransactionRequest_PageSizeNormalized(t *testing.T) {
	provider := &fakeProvider{recordType: types.RecordTypeSteps, table: "steps_record_table"}

	cases := []struct {
		name     string
		pageSize int
		want     int
	}{
		{"zero falls back to default", 0, types.DefaultPageSize},
		{"negative falls back to default", -3, types.DefaultPageSize},
		{"oversized clamps to max", 9000, types.MaxPageSize},
		{"explicit size kept", 100, 100},
	}
	for _, c := range cases {
		filter := types.ReadFilter{RecordType: types.RecordTypeSteps, PageSize: c.pageSize}
		req, err := NewReadTransactionRequest(provider, filter, "com.example.fit", false, 0)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if req.PageSize() != c.want {
			t.Errorf("%s: PageSize = %d, want %d", c.name, req.PageSize(), c.want)
		}
	}
}

func TestNewReadTransactionRequest_BadPageToken(t *testing.T) {
	provider := &fakeProvider{recordType: types.RecordTypeSteps, table: "steps_record_table"}
	filter := types.ReadFilter{RecordType: types.RecordTypeSteps, PageToken: "garbage"}
	if _, err := NewReadTransactionRequest(provider, filter, "caller", false, 0); !errors.Is(err, types.ErrInvalidPageToken) {
		t.Errorf("err = %v, want ErrInvalidPageToken", err)
	}
}

func TestNewReadByIDTransactionRequest(t *testing.T) {
	provider := &fakeProvider{recordType: types.RecordTypeSteps, table: "steps_record_table"}
	req, err := NewReadByIDTransactionRequest(provider, "com.example.fit", []string{"u1", "u2"})
	if err != nil {
		t.Fatal(err)
	}
	if !req.IsReadingSelfData() {
		t.Error("id-based reads are self reads by design")
	}
	if req.PageToken() != nil || req.PageSize() != 0 {
		t.Error("id-based reads must not paginate")
	}
	if len(req.ReadRequests()) != 1 {
		t.Fatalf("ReadRequests = %d, want 1", len(req.ReadRequests()))
	}
}

func TestNewChangelogReadTransactionRequest(t *testing.T) {
	providers := map[string]ReadRequestProvider{
		types.RecordTypeSteps:     &fakeProvider{recordType: types.RecordTypeSteps, table: "steps_record_table"},
		types.RecordTypeHeartRate: &fakeProvider{recordType: types.RecordTypeHeartRate, table: "heart_rate_record_table"},
	}
	uuidsByType := map[string][]string{
		types.RecordTypeSteps:     {"s1"},
		types.RecordTypeHeartRate: {"h1", "h2"},
	}

	req, err := NewChangelogReadTransactionRequest(providers, "com.example.fit", uuidsByType)
	if err != nil {
		t.Fatal(err)
	}
	if len(req.ReadRequests()) != 2 {
		t.Fatalf("ReadRequests = %d, want 2", len(req.ReadRequests()))
	}
	// Record types are sorted for deterministic execution order.
	wantTypes := []string{types.RecordTypeHeartRate, types.RecordTypeSteps}
	for i, rt := range req.RecordTypes() {
		if rt != wantTypes[i] {
			t.Errorf("RecordTypes[%d] = %q, want %q", i, rt, wantTypes[i])
		}
	}
}

func TestNewChangelogReadTransactionRequest_UnknownTypeFails(t *testing.T) {
	providers := map[string]ReadRequestProvider{}
	_, err := NewChangelogReadTransactionRequest(providers, "caller", map[string][]string{"bogus": {"u1"}})
	if !errors.Is(err, types.ErrUnknownRecordType) {
		t.Errorf("err = %v, want ErrUnknownRecordType", err)
	}
}
