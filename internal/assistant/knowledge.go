package assistant

// Canned answers. Placeholders in braces are filled from live Facts.
var (
	greetings = []string{
		"Hello! I'm your IoT Device Identification Assistant. How can I help you today?",
		"Hi there! I can help you with IoT device identification and analysis. What would you like to know?",
		"Welcome! I'm here to assist you with IoT device classification and network traffic analysis.",
	}

	capabilities = []string{
		"I can help you identify IoT devices based on network traffic patterns. I support {category_count} device categories: {categories}.",
		"I can analyze network traffic features like packet sizes, HTTP requests, SSL certificates, and more to classify IoT devices with high accuracy.",
		"I can provide insights about device behavior patterns, security implications, and network optimization for IoT devices.",
	}

	deviceInfo = map[string]string{
		"baby_monitor":    "Baby monitors typically show regular heartbeat patterns in network traffic, use specific ports, and have characteristic SSL certificate patterns.",
		"lights":          "Smart lights usually have low bandwidth usage, frequent small packets for status updates, and specific HTTP request patterns.",
		"motion_sensor":   "Motion sensors show burst traffic patterns when triggered, with specific inter-arrival times and packet size distributions.",
		"security_camera": "Security cameras generate high bandwidth traffic, especially for video streaming, with specific SSL and HTTP patterns.",
		"smoke_detector":  "Smoke detectors have very low network activity, with occasional status updates and specific port usage patterns.",
		"socket":          "Smart sockets show power consumption patterns in their network traffic, with specific timing characteristics.",
		"thermostat":      "Thermostats have temperature-related network patterns, with regular status updates and specific timing intervals.",
		"tv":              "Smart TVs generate high bandwidth traffic for streaming, with specific HTTP and SSL patterns for content delivery.",
		"watch":           "Smart watches show intermittent connectivity patterns, with specific power management characteristics in network traffic.",
	}

	featureAnswers = []string{
		"Our model analyzes {features} network traffic features including packet sizes, HTTP patterns, SSL certificates, timing characteristics, and more.",
		"Key features include bytes transferred, packet inter-arrival times, HTTP request/response patterns, SSL handshake characteristics, and TCP analysis.",
		"The service averages the class probabilities of {models} independently trained models and picks the most likely device category.",
	}

	securityAnswers = []string{
		"IoT device identification helps in network security by detecting unauthorized devices, monitoring device behavior, and identifying potential threats.",
		"By analyzing traffic patterns, we can detect anomalies, unauthorized access attempts, and compromised IoT devices.",
		"Device identification enables proper network segmentation, access control, and security policy enforcement.",
	}

	accuracyAnswer = "Our ensemble achieves high accuracy in IoT device identification by analyzing {features} network traffic features. It combines {models} classifiers trained on diverse traffic patterns to keep the classification robust."

	datasetAnswer = "The reference dataset has {samples} samples across {category_count} device categories. It includes {features} features extracted from network traffic including packet characteristics, HTTP patterns, SSL certificates, and timing information."

	numericalAnswers = []string{
		"Our model analyzes {features} numerical features from network traffic including packet sizes, timing intervals, byte counts, HTTP patterns, SSL characteristics, and more.",
		"Key numerical features include bytes transferred, packet inter-arrival times, HTTP request/response sizes, SSL handshake durations, and TCP analysis metrics.",
		"The model processes numerical data like packet counts, duration measurements, entropy calculations, statistical moments (mean, median, std dev), and frequency distributions.",
	}

	dsxAnswers = []string{
		"DSX likely refers to data science or experimental features. Our model uses feature engineering with {features} numerical attributes for IoT device classification.",
		"The dataset includes experimental features like HTTP entropy, SSL certificate analysis, packet timing distributions, and network protocol characteristics.",
		"The model ensemble processes these experimental features to achieve high accuracy in device identification.",
	}

	defaultAnswers = []string{
		"I can help you with IoT device identification, network traffic analysis, device behavior patterns, and security implications. What specific aspect would you like to know about?",
		"I'm specialized in IoT device classification using machine learning. I can explain device types, network patterns, security aspects, or help with technical questions. What would you like to know?",
		"I can assist with IoT device identification, explain how our ML model works, discuss device categories, or help with network security questions. What's your specific question?",
	}
)

// Keyword groups, checked in order. Multi-word entries match as phrases, single words
// match whole tokens.
var (
	greetingWords   = []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}
	capabilityWords = []string{"what can you do", "capabilities", "help", "assist", "support"}
	featureWords    = []string{"features", "model", "algorithm", "machine learning", "ml"}
	securityWords   = []string{"security", "threat", "attack", "vulnerability", "protection"}
	accuracyWords   = []string{"accuracy", "performance", "results", "prediction"}
	datasetWords    = []string{"dataset", "data", "training", "samples"}
	numericalWords  = []string{"numerical", "numbers", "values", "metrics"}
)
