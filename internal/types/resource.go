package types

// ResourceType names a profile resource that plans put quotas on
type ResourceType string

const (
	ResourcePhotos        ResourceType = "photos"
	ResourceVideos        ResourceType = "videos"
	ResourceServices      ResourceType = "services"
	ResourceWorkZones     ResourceType = "work_zones"
	ResourceGalleryVideos ResourceType = "gallery_videos"
)

func (r ResourceType) String() string {
	return string(r)
}

// Validate reports whether the resource is one this subsystem meters.
// Unknown resources are not an error at call sites; their count is zero.
func (r ResourceType) Validate() bool {
	switch r {
	case ResourcePhotos, ResourceVideos, ResourceServices, ResourceWorkZones, ResourceGalleryVideos:
		return true
	}
	return false
}

// AllResourceTypes lists every metered resource in a stable order
func AllResourceTypes() []ResourceType {
	return []ResourceType{
		ResourcePhotos,
		ResourceVideos,
		ResourceServices,
		ResourceWorkZones,
		ResourceGalleryVideos,
	}
}

// UnlimitedQuota marks a plan limit as unbounded
const UnlimitedQuota = -1
