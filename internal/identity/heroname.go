package identity

import "math/rand"

var heroAdjectives = []string{
	"Swift", "Cosmic", "Thunder", "Shadow", "Mighty", "Blazing", "Quantum", "Mystic",
	"Stellar", "Neon", "Phantom", "Crimson", "Arctic", "Volt", "Sonic", "Hyper",
	"Turbo", "Astral", "Cyber", "Omega", "Ultra", "Mega", "Storm", "Iron",
	"Golden", "Silver", "Crystal", "Plasma", "Nova", "Lunar", "Solar", "Atomic",
}

var heroNouns = []string{
	"Phoenix", "Falcon", "Panther", "Wolf", "Dragon", "Titan", "Hawk", "Viper",
	"Raven", "Fox", "Lynx", "Jaguar", "Cobra", "Eagle", "Tiger", "Lion",
	"Sphinx", "Griffin", "Hydra", "Kraken", "Ninja", "Samurai", "Knight", "Wizard",
	"Ranger", "Voyager", "Pioneer", "Sentinel", "Guardian", "Wanderer", "Striker", "Blaze",
}

// GenerateHeroName returns a random superhero name for anonymous guests.
func GenerateHeroName() string {
	return heroAdjectives[rand.Intn(len(heroAdjectives))] + heroNouns[rand.Intn(len(heroNouns))]
}
