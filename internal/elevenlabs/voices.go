package elevenlabs

// Voice pairs an ElevenLabs voice ID with a human-readable character label.
type Voice struct {
	ID    string
	Label string
}

// DefaultVoices is the rotation pool; a random entry is used per narration
// so consecutive videos do not share a voice.
var DefaultVoices = []Voice{
	{ID: "exAV9Z2pS7V5OABHzkYk", Label: "laki-laki energik"},
	{ID: "pNInz6obpgDQGcFmaJgB", Label: "perempuan ceria"},
	{ID: "VR6AewLTigWG4xSOukaG", Label: "netral profesional"},
	{ID: "MF3mGyEYCl7XYWbV9V6O", Label: "remaja gaul"},
	{ID: "21m00Tcm4TlvDq8ikWAM", Label: "karakter unik"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Label: "wanita lembut"},
	{ID: "TX3LPaxmHKxFdv7VOQHJ", Label: "pria dalam"},
}
