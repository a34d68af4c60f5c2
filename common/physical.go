package common

// All units are metric:
// - Speed is in m/s
// - Distance is in meters
// - Time is in seconds
// - Acceleration is in m/s^2

const SpeedOfWalkingMin = 0.23  // or 0.8 km/h or 0.5 mph
const SpeedOfWalkingMean = 1.2  // or 4.3 km/h or 2.7 mph
const SpeedOfWalkingMax = 1.78  // or 6.4 km/h or 4 mph

const SpeedOfRunningMin = 2.23  // or 8 km/h or 5 mph
const SpeedOfRunningMean = 3.35 // or 12 km/h or 7.5 mph or 8min/mile
const SpeedOfRunningMax = 5.56  // or 20 km/h or 12 mph

const SpeedOfCyclingMin = SpeedOfRunningMin
const SpeedOfCyclingMean = 5.36 // or 19.3 km/h or 12 mph
const SpeedOfCyclingMax = 11.76 // or 42 km/h or 26 mph

const SpeedOfDrivingMin = 4.47         // or 16 km/h or 10 mph
const SpeedOfDrivingCityMean = 13.9    // or 50 km/h or 31 mph
const SpeedOfDrivingHighwayMin = 20.11 // or 72 km/h or 45 mph
const SpeedOfDrivingFreeway = 33.33    // or 120 km/h or 75 mph
const SpeedOfDrivingAutobahn = 67.06   // or 241 km/h or 150 mph

const SpeedOfSound = 343.0

// GravityOfEarth is standard gravity, the magnitude an idle accelerometer reports.
const GravityOfEarth = 9.80665

const ElevationOfEverest = 8848.0
const ElevationOfTroposphere = 11000.0
const ElevationOfDeadSea = -430.0
