package auth

// Home routes per role.
const (
	PatientHome = "/patients"
	DoctorHome  = "/doctors"
	NurseHome   = "/nurses"
	AdminHome   = "/admin"
	SignInRoute = "/sign-in"
)

// DestinationFor maps a role to its home route. It is total: the zero Role and
// any unrecognized value map to the sign-in route.
func DestinationFor(role Role) string {
	switch role {
	case RolePatient:
		return PatientHome
	case RoleDoctor:
		return DoctorHome
	case RoleAdmin:
		return AdminHome
	case RoleNurse:
		return NurseHome
	default:
		return SignInRoute
	}
}
