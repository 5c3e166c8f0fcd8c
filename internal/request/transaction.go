package request

import (
	"fmt"
	"sort"

	"github.com/perch-health/healthstore/pkg/types"
)

// ReadRequestProvider is the per-record-type strategy consumed when
// composing a transaction-level read. The store's record helpers implement
// it; this package only depends on the contract.
type ReadRequestProvider interface {
	// RecordType returns the record type identifier the provider serves.
	RecordType() string

	// ReadTableRequest builds the filtered read for one public API call.
	// enforceSelfRead restricts results to the caller's own records;
	// historicalAccessStartMillis, when positive, is the lower bound applied
	// to other apps' records.
	ReadTableRequest(filter types.ReadFilter, callerPackage string, enforceSelfRead bool,
		historicalAccessStartMillis int64) (*ReadTableRequest, error)

	// ReadTableRequestByIDs builds a read scoped to specific record UUIDs.
	ReadTableRequestByIDs(callerPackage string, uuids []string) *ReadTableRequest
}

// ReadTransactionRequest composes one or more ReadTableRequests from a
// decoded public API call, attaching pagination and package-scoping
// metadata for the executor.
type ReadTransactionRequest struct {
	callerPackage   string
	readRequests    []*ReadTableRequest
	pageToken       *PageToken
	pageSize        int
	recordTypes     []string
	readingSelfData bool
}

// NewReadTransactionRequest composes the read for a read-by-filter call:
// one record type, one ReadTableRequest, with pagination.
func NewReadTransactionRequest(provider ReadRequestProvider, filter types.ReadFilter,
	callerPackage string, enforceSelfRead bool, historicalAccessStartMillis int64) (*ReadTransactionRequest, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownRecordType, filter.RecordType)
	}
	var token *PageToken
	if filter.PageToken != "" {
		decoded, err := DecodePageToken(filter.PageToken)
		if err != nil {
			return nil, err
		}
		// The ordering is baked into the cursor; it overrides the filter so
		// a page sequence cannot flip direction midway.
		filter.Ascending = decoded.Ascending
		token = decoded
	}
	readRequest, err := provider.ReadTableRequest(filter, callerPackage, enforceSelfRead, historicalAccessStartMillis)
	if err != nil {
		return nil, err
	}
	// Filter reads always paginate: a non-positive requested size falls back
	// to the default and oversized requests clamp, so the executor can rely
	// on PageSize being the effective page length.
	pageSize := filter.PageSize
	switch {
	case pageSize <= 0:
		pageSize = types.DefaultPageSize
	case pageSize > types.MaxPageSize:
		pageSize = types.MaxPageSize
	}
	return &ReadTransactionRequest{
		callerPackage:   callerPackage,
		readRequests:    []*ReadTableRequest{readRequest},
		pageToken:       token,
		pageSize:        pageSize,
		recordTypes:     []string{provider.RecordType()},
		readingSelfData: enforceSelfRead || readsOnlyCaller(filter.Packages, callerPackage),
	}, nil
}

// NewReadByIDTransactionRequest composes the read for a read-by-id call.
// Id-based reads carry no pagination and are treated as self reads, which
// lets downstream permission checks skip the cross-app ownership read.
func NewReadByIDTransactionRequest(provider ReadRequestProvider, callerPackage string,
	uuids []string) (*ReadTransactionRequest, error) {
	if provider == nil {
		return nil, types.ErrUnknownRecordType
	}
	return &ReadTransactionRequest{
		callerPackage:   callerPackage,
		readRequests:    []*ReadTableRequest{provider.ReadTableRequestByIDs(callerPackage, uuids)},
		recordTypes:     []string{provider.RecordType()},
		readingSelfData: true,
	}, nil
}

// NewChangelogReadTransactionRequest composes the reads hydrating a
// changelog page: one ReadTableRequest per record type, each scoped to the
// UUIDs the log named. Pagination belongs to the changelog layer, not here.
// An unknown record type is a contract error and propagates.
func NewChangelogReadTransactionRequest(providers map[string]ReadRequestProvider,
	callerPackage string, uuidsByType map[string][]string) (*ReadTransactionRequest, error) {
	recordTypes := make([]string, 0, len(uuidsByType))
	for recordType := range uuidsByType {
		recordTypes = append(recordTypes, recordType)
	}
	sort.Strings(recordTypes)

	readRequests := make([]*ReadTableRequest, 0, len(recordTypes))
	for _, recordType := range recordTypes {
		provider, ok := providers[recordType]
		if !ok {
			return nil, fmt.Errorf("%w: %q", types.ErrUnknownRecordType, recordType)
		}
		readRequests = append(readRequests, provider.ReadTableRequestByIDs(callerPackage, uuidsByType[recordType]))
	}
	return &ReadTransactionRequest{
		callerPackage: callerPackage,
		readRequests:  readRequests,
		recordTypes:   recordTypes,
	}, nil
}

// CallerPackage returns the calling package name.
func (r *ReadTransactionRequest) CallerPackage() string { return r.callerPackage }

// ReadRequests returns the composed table reads.
func (r *ReadTransactionRequest) ReadRequests() []*ReadTableRequest { return r.readRequests }

// PageToken returns the decoded paging cursor, nil for id-based and
// changelog reads.
func (r *ReadTransactionRequest) PageToken() *PageToken { return r.pageToken }

// PageSize returns the effective page size for filter reads, zero for the
// unpaginated id-based and changelog reads.
func (r *ReadTransactionRequest) PageSize() int { return r.pageSize }

// RecordTypes returns the record type identifiers this transaction reads.
func (r *ReadTransactionRequest) RecordTypes() []string { return r.recordTypes }

// IsReadingSelfData reports whether the caller reads only its own records,
// enabling relaxed access checks downstream.
func (r *ReadTransactionRequest) IsReadingSelfData() bool { return r.readingSelfData }

func readsOnlyCaller(packages []string, callerPackage string) bool {
	if len(packages) == 0 {
		return false
	}
	for _, pkg := range packages {
		if pkg != callerPackage {
			return false
		}
	}
	return true
}
