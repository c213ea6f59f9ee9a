package catalog

var defaultLabels = []string{
	"Cars", "Automobiles", "Sports", "Movies", "TV", "Music", "Entertainment",
	"Celebrities", "Pop Culture", "Cities", "Architecture", "Minimalist",
	"Aesthetic", "Technology", "Cyber", "Gaming", "Anime", "Manga", "Fantasy",
	"Mythology", "Gods", "Religion", "Science", "Exploration", "Nature",
	"Landscapes", "Space", "Astronomy", "History", "Heritage", "Books",
	"Literature", "Philosophy", "Thought", "Food", "Culinary", "Fashion",
	"Trends", "Photography", "Visual Arts", "Military", "Warfare", "Bikes",
	"Motorcycles", "Fitness", "Health", "Travel", "Adventure", "Horror",
	"Dark Themes", "Superheroes", "Comics", "Sci-Fi", "Futuristic", "Medicine",
	"Healthcare", "Racing", "Wildlife", "Animals", "Mythical Creatures", "Luxury",
	"Lifestyle", "DIY", "Crafting", "Education", "Learning", "Psychology",
	"Human Behavior", "Anime Culture", "Gaming Culture", "Vehicles",
	"Transportation", "War", "Battles", "Luxury Homes", "Real Estate", "Vintage",
	"Retro", "Hobbies", "Interests", "Occult", "Mysticism", "Martial Arts",
	"Combat", "Cybersecurity", "Hacking", "Spirituality", "Mindfulness",
	"Folklore", "Legends", "Economic World", "Financial World", "Academia",
	"Research", "Paranormal", "Supernatural", "Comedy", "Humor",
	"Historical Monuments", "Cinema Culture", "Fitness Challenges",
	"Space Missions", "Rockets", "Art", "Museums", "Extreme Sports", "Dark Web",
	"Conspiracies", "Digital Art", "NFTs", "Astrology", "Zodiac Signs",
	"Luxury Watches", "Accessories", "Car Shows", "Exhibitions",
	"Environmental Awareness", "Robotics", "AI", "Camping", "Survival",
	"Political Science", "Governance", "Streetwear", "Urban Culture",
	"Theme Parks", "Attractions", "Motivation", "Self-Help", "Languages",
	"Cultures", "Animal Conservation", "Zoos", "Gaming Consoles", "Tech",
	"Psychological Thrillers", "Motorcycle Stunts", "Racing", "Puzzles",
	"Riddles", "Festivals", "Celebrations", "Classic Cars", "Historical Cars",
	"Geography", "Extreme Weather", "Natural Disasters", "Phobias",
	"Irrational Fears", "Military Vehicles", "Tanks", "Survival Stories",
	"Vintage Films", "Luxury Hotels", "Resorts", "Ancient History",
	"Lost Civilizations", "Science Experiments", "Discoveries", "Supercars",
	"Tech Evolution", "Wildlife Photography", "Street Photography", "Urban Life",
	"Exotic Animals", "Yachts", "Marine Life", "Artificial Intelligence",
	"Space Exploration", "The Unknown", "Survival Tactics", "Strategies",
	"Online Communities", "Fandoms", "Tattoo Art", "Body Modification",
	"Classic Cartoons", "Animation", "Urban Legends", "Myths", "Mountains",
	"Forests", "Rivers", "Waterfalls", "Beaches", "Oceans", "Clouds", "Skies",
	"Moon", "Stars", "Sunsets", "Sunrises", "Storms", "Lightning", "Snow", "Ice",
	"Rain", "Thunder", "Lakes", "Ponds", "Deserts", "Dunes", "Greenery", "Fields",
}
