package klaviyo

// Wire types for the two JSON:API surfaces the synchronizer consumes:
// GET /api/segments/{id}/profiles and POST /api/events.

// profileListResponse is one page of the segment profiles listing.
type profileListResponse struct {
	Data  []profileResource `json:"data"`
	Links pageLinks         `json:"links"`
}

type profileResource struct {
	ID         string            `json:"id"`
	Attributes profileAttributes `json:"attributes"`
}

type profileAttributes struct {
	Email string `json:"email"`
}

type pageLinks struct {
	Next string `json:"next"`
}

// eventRequest is the body of POST /api/events.
type eventRequest struct {
	Data eventResource `json:"data"`
}

type eventResource struct {
	Type       string          `json:"type"`
	Attributes eventAttributes `json:"attributes"`
}

type eventAttributes struct {
	Properties eventProperties `json:"properties"`
	Metric     metricData      `json:"metric"`
	Profile    profileData     `json:"profile"`
}

type eventProperties struct {
	SegmentID   string `json:"segment_id"`
	SegmentName string `json:"segment_name"`
	Timestamp   string `json:"timestamp"`
}

type metricData struct {
	Data metricResource `json:"data"`
}

type metricResource struct {
	Type       string           `json:"type"`
	Attributes metricAttributes `json:"attributes"`
}

type metricAttributes struct {
	Name string `json:"name"`
}

type profileData struct {
	Data eventProfileResource `json:"data"`
}

type eventProfileResource struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Attributes eventProfileAttributes `json:"attributes"`
}

type eventProfileAttributes struct {
	Email string       `json:"email,omitempty"`
	Meta  *profileMeta `json:"meta,omitempty"`
}

type profileMeta struct {
	PatchProperties patchProperties `json:"patch_properties"`
}

// patchProperties carries the profile property patch attached to every
// lifecycle event. Exactly one of Append/Unappend is populated per event;
// the other is serialized as an empty object.
type patchProperties struct {
	Append   map[string][]string `json:"append"`
	Unappend map[string][]string `json:"unappend"`
}
